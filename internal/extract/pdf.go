package extract

import (
	"github.com/gen2brain/go-fitz"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

// extractPDF attempts programmatic extraction via go-fitz (MuPDF), falling
// back to OCR:
//   - extraction fails entirely + OCR enabled -> run OCR
//   - extraction fails entirely + OCR disabled -> surface the error
//   - extraction succeeds but cleaned text < OCRMinChars + OCR enabled -> run
//     OCR and replace the pages
func extractPDF(path string, settings Settings) ([]string, error) {
	text, err := extractPDFIsolated(path)
	if err != nil {
		if settings.OCREnabled {
			return runOCR(path, settings)
		}
		return nil, err
	}

	pages := nonEmptyPages(splitFormFeed(text))
	if totalChars(pages) < settings.OCRMinChars && settings.OCREnabled {
		return runOCR(path, settings)
	}
	return pages, nil
}

func totalChars(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len([]rune(p))
	}
	return n
}

// extractPDFIsolated runs the go-fitz extraction in a fault-contained
// goroutine and converts any panic into a plain error: third-party PDF
// decoders (MuPDF via cgo here) are
// known to occasionally terminate abnormally, and that must never bring
// down an indexing run.
func extractPDFIsolated(path string) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: localerrors.PanicError(r).WithDetail("path", path)}
			}
		}()

		text, err := extractPDFRaw(path)
		ch <- result{text: text, err: err}
	}()

	r := <-ch
	return r.text, r.err
}

func extractPDFRaw(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", localerrors.ExtractionError(localerrors.ErrCodePDFDecodeFailed, "open pdf: "+err.Error(), err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	pages := make([]string, 0, numPages)
	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			// A single unreadable page does not fail the whole document;
			// it simply contributes no text.
			continue
		}
		pages = append(pages, pageText)
	}

	// Join with form-feed so the shared splitFormFeed/clean pipeline applies
	// uniformly to both the programmatic and OCR paths.
	joined := ""
	for i, p := range pages {
		if i > 0 {
			joined += "\x0C"
		}
		joined += p
	}
	return joined, nil
}
