// Package textutil provides filename helpers shared by the upload and
// download paths.
//
// StoredName predicts the name the backend stores an upload under so the
// console can track a job before the backend confirms it. SanitizeFileName
// makes arbitrary names safe for local files.
package textutil
