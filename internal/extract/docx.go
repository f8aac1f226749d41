package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

// extractDOCX opens path as a ZIP archive, stream-parses word/document.xml,
// concatenates text nodes, and emits a newline at each </w:p> close tag.
// DOCX text is emitted as a single page.
func extractDOCX(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, localerrors.ExtractionError(localerrors.ErrCodeDOCXParseFailed, "open docx as zip: "+err.Error(), err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, localerrors.ExtractionError(localerrors.ErrCodeDOCXParseFailed, "docx missing word/document.xml", nil)
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, localerrors.ExtractionError(localerrors.ErrCodeDOCXParseFailed, "open word/document.xml: "+err.Error(), err)
	}
	defer rc.Close()

	text, err := streamDocumentXML(rc)
	if err != nil {
		return nil, localerrors.ExtractionError(localerrors.ErrCodeDOCXParseFailed, "parse word/document.xml: "+err.Error(), err)
	}

	return nonEmptyPages([]string{text}), nil
}

// streamDocumentXML walks the XML token stream, concatenating character
// data found in <w:t> runs and emitting a newline each time a <w:p>
// paragraph element closes.
func streamDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}
