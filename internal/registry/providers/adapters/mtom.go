package adapters

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// ExtractEnvelope returns the SOAP envelope carried by a response body.
//
// MTOM/XOP responses arrive as multipart/related; the root part is the one named
// by the "start" parameter, or the first part when start is absent. Bodies that
// look multipart but lost their Content-Type have the boundary sniffed from the
// first line. Anything else is returned unchanged.
func ExtractEnvelope(contentType string, body []byte) ([]byte, error) {
	if contentType != "" {
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err == nil && strings.HasPrefix(mediaType, "multipart/") {
			boundary := params["boundary"]
			if boundary == "" {
				return nil, errors.New("multipart response without boundary")
			}
			return readRootPart(body, boundary, params["start"])
		}
	}

	if boundary, ok := sniffBoundary(body); ok {
		return readRootPart(body, boundary, "")
	}
	return body, nil
}

// sniffBoundary detects a leading "--boundary" line.
func sniffBoundary(body []byte) (string, bool) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("--")) {
		return "", false
	}
	line, err := bufio.NewReader(bytes.NewReader(trimmed)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false
	}
	boundary := strings.TrimSpace(strings.TrimPrefix(line, "--"))
	if boundary == "" {
		return "", false
	}
	return boundary, true
}

func readRootPart(body []byte, boundary, start string) ([]byte, error) {
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	wantID := trimContentID(start)

	var first []byte
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if first != nil {
				return first, nil
			}
			return nil, fmt.Errorf("read multipart response: %w", err)
		}

		content, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("read multipart part: %w", err)
		}

		if wantID == "" {
			return content, nil
		}
		if trimContentID(part.Header.Get("Content-ID")) == wantID {
			return content, nil
		}
		if first == nil {
			first = content
		}
	}

	if first != nil {
		return first, nil
	}
	return nil, errors.New("multipart response has no parts")
}

func trimContentID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
}
