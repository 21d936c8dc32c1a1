package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Detection is a single labelled object in one frame.
type Detection struct {
	Label       string `json:"label"`
	BoundingBox [4]int `json:"bounding_box"`
}

// LabelCount is the number of detections carrying one label.
type LabelCount struct {
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Frames int    `json:"frames"`
}

// Summary condenses a metadata document for display.
type Summary struct {
	// Structured is false when the document is not a detection array.
	Structured           bool         `json:"structured"`
	Frames               int          `json:"frames"`
	FramesWithDetections int          `json:"framesWithDetections"`
	Detections           int          `json:"detections"`
	Labels               []LabelCount `json:"labels"`
	Bytes                int          `json:"bytes"`
}

// Decode parses a detection document into per-frame detections.
func Decode(doc json.RawMessage) ([][]Detection, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("metadata is not a frame array")
	}
	var frames [][]Detection
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&frames); err != nil {
		return nil, fmt.Errorf("decode detection frames: %w", err)
	}
	return frames, nil
}

// Summarize returns label counts for detection documents and a byte count for
// anything else.
func Summarize(doc json.RawMessage) Summary {
	summary := Summary{Bytes: len(doc)}
	frames, err := Decode(doc)
	if err != nil {
		return summary
	}
	summary.Structured = true
	summary.Frames = len(frames)

	counts := make(map[string]*LabelCount)
	for _, frame := range frames {
		if len(frame) > 0 {
			summary.FramesWithDetections++
		}
		seen := make(map[string]struct{}, len(frame))
		for _, detection := range frame {
			summary.Detections++
			label := detection.Label
			if label == "" {
				label = "unknown"
			}
			entry, ok := counts[label]
			if !ok {
				entry = &LabelCount{Label: label}
				counts[label] = entry
			}
			entry.Count++
			if _, dup := seen[label]; !dup {
				seen[label] = struct{}{}
				entry.Frames++
			}
		}
	}

	summary.Labels = make([]LabelCount, 0, len(counts))
	for _, entry := range counts {
		summary.Labels = append(summary.Labels, *entry)
	}
	sort.Slice(summary.Labels, func(i, j int) bool {
		if summary.Labels[i].Count != summary.Labels[j].Count {
			return summary.Labels[i].Count > summary.Labels[j].Count
		}
		return summary.Labels[i].Label < summary.Labels[j].Label
	})
	return summary
}

// Pretty indents doc for display. Invalid input is returned unchanged.
func Pretty(doc json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return string(doc)
	}
	return buf.String()
}
