package extract

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

// ocrLibSearchPaths are platform-appropriate dynamic-library search
// directories prepended to the OCR subprocess's environment so a bundled
// Tesseract/Leptonica can find its shared libraries without being installed
// system-wide.
func ocrLibSearchPaths(binDir string) (envVar string, paths []string) {
	switch runtime.GOOS {
	case "darwin":
		return "DYLD_LIBRARY_PATH", []string{binDir}
	case "windows":
		return "PATH", []string{binDir}
	default:
		return "LD_LIBRARY_PATH", []string{binDir}
	}
}

// runOCR invokes the OCR collaborator as:
//
//	<binary> <path> stdout -l <lang> --dpi <dpi> [--tessdata-dir <dir>]
//
// and splits its stdout on form-feed into pages. Non-zero exit is
// an error carrying stderr.
func runOCR(path string, settings Settings) ([]string, error) {
	binary := settings.OCRBinary
	if binary == "" {
		return nil, localerrors.ConfigurationError(localerrors.ErrCodeOCRBinaryUnreadable, "ocr enabled but no ocr binary configured", nil)
	}

	if runtime.GOOS != "windows" {
		if err := ensureExecutable(binary); err != nil {
			return nil, localerrors.ConfigurationError(localerrors.ErrCodeOCRBinaryUnreadable, "chmod ocr binary: "+err.Error(), err)
		}
	}

	lang := settings.OCRLang
	if lang == "" {
		lang = "eng"
	}
	dpi := settings.OCRDPI
	if dpi == 0 {
		dpi = 300
	}

	args := []string{path, "stdout", "-l", lang, "--dpi", fmt.Sprintf("%d", dpi)}
	if settings.OCRTessdata != "" {
		args = append(args, "--tessdata-dir", settings.OCRTessdata)
	}

	cmd := exec.Command(binary, args...)

	envVar, libPaths := ocrLibSearchPaths(binaryDir(binary))
	cmd.Env = prependEnvPath(os.Environ(), envVar, libPaths)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, localerrors.ExtractionError(localerrors.ErrCodeOCRFailed, "ocr subprocess failed: "+err.Error(), err).
			WithDetail("stderr", stderr.String())
	}

	return nonEmptyPages(splitFormFeed(stdout.String())), nil
}

// ensureExecutable chmods path to be executable if it is not already;
// a bundled binary may have lost its executable bit on extraction.
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode()&0o111 != 0 {
		return nil
	}
	return os.Chmod(path, info.Mode()|0o111)
}

func binaryDir(binary string) string {
	for i := len(binary) - 1; i >= 0; i-- {
		if binary[i] == '/' || binary[i] == '\\' {
			return binary[:i]
		}
	}
	return "."
}

// prependEnvPath returns a copy of env with key's value prefixed by paths,
// appending a new KEY=value pair if key is not already present.
func prependEnvPath(env []string, key string, paths []string) []string {
	prefix := key + "="
	joined := ""
	for _, p := range paths {
		if joined != "" {
			joined += string(os.PathListSeparator)
		}
		joined += p
	}

	out := make([]string, 0, len(env)+1)
	found := false
	for _, kv := range env {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			existing := kv[len(prefix):]
			out = append(out, prefix+joined+string(os.PathListSeparator)+existing)
			found = true
			continue
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, prefix+joined)
	}
	return out
}
