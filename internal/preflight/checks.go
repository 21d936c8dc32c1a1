package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"orsi/internal/fileutil"
)

const backendTimeout = 10 * time.Second

// CheckBackend lists the videos once.
func CheckBackend(ctx context.Context, baseURL string, backend Lister) Result {
	const name = "Backend"
	if backend == nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (no client)", baseURL)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	collections, err := backend.ListVideos(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", baseURL, summarizeError(err))}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%d uploaded, %d processed)", baseURL, len(collections.Uploaded), len(collections.Processed)),
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDownloadDir accepts a missing directory whose nearest existing parent
// is writable, since fetch creates it on demand. Free space is reported.
func CheckDownloadDir(path string) Result {
	const name = "Download directory"
	existing := path
	for {
		if _, err := os.Stat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		existing = parent
	}

	result := CheckDirectoryAccess(name, existing)
	result.Optional = true
	if !result.Passed {
		return result
	}
	detail := "read/write ok"
	if existing != path {
		detail = "will be created"
	}
	if free, err := fileutil.FreeBytes(existing); err == nil {
		detail += ", " + humanize.Bytes(free) + " free"
	}
	result.Detail = fmt.Sprintf("%s (%s)", path, detail)
	return result
}

// CheckBinary resolves command on PATH.
func CheckBinary(name, command string, optional bool) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Optional: optional, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Optional: optional, Detail: resolved}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "unreachable: " + opErr.Err.Error()
	}
	return err.Error()
}
