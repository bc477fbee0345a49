// Package boe parses consolidated legislation published by the Boletín Oficial del
// Estado and compares it against the stored articles.
package boe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// Article is one article extracted from a consolidated text.
type Article struct {
	Number  string // "14", "14 bis", "2.1", "único"
	Title   string
	Content string
	// Vigencia is the fecha_vigencia (YYYYMMDD) of the version used.
	Vigencia string
}

var ErrNoArticles = errors.New("no articles found in BOE document")

type xmlBloque struct {
	ID        string       `xml:"id,attr"`
	Tipo      string       `xml:"tipo,attr"`
	Titulo    string       `xml:"titulo,attr"`
	Versiones []xmlVersion `xml:"version"`
}

type xmlVersion struct {
	FechaPublicacion string         `xml:"fecha_publicacion,attr"`
	FechaVigencia    string         `xml:"fecha_vigencia,attr"`
	Paragraphs       []xmlParagraph `xml:"p"`
}

type xmlParagraph struct {
	Class string `xml:"class,attr"`
	Inner string `xml:",innerxml"`
}

var (
	headingRe = regexp.MustCompile(`(?i)^art[ií]culo\s+(\d+(?:\.\d+)*|[úu]nico)(?:\s+(bis|ter|quater|quinquies|sexies|septies|octies|novies|decies))?\s*\.?\s*(.*)$`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// ParseConsolidated extracts the articles of a BOE consolidated text. Only
// <bloque tipo="precepto"> blocks whose heading is an article are kept, and
// for each block the most recent <version> is used.
func ParseConsolidated(r io.Reader) ([]Article, error) {
	dec := xml.NewDecoder(r)
	var out []Article
	seen := map[string]bool{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse boe xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "bloque" {
			continue
		}
		var b xmlBloque
		if err := dec.DecodeElement(&b, &start); err != nil {
			return nil, fmt.Errorf("parse boe bloque: %w", err)
		}
		if b.Tipo != "precepto" {
			continue
		}
		a, ok := articleFromBloque(b)
		if !ok || seen[a.Number] {
			continue
		}
		seen[a.Number] = true
		out = append(out, a)
	}

	if len(out) == 0 {
		return nil, ErrNoArticles
	}
	return out, nil
}

// ParseConsolidatedBytes is a convenience wrapper over ParseConsolidated.
func ParseConsolidatedBytes(b []byte) ([]Article, error) {
	return ParseConsolidated(bytes.NewReader(b))
}

func articleFromBloque(b xmlBloque) (Article, bool) {
	v, ok := latestVersion(b.Versiones)
	if !ok {
		return Article{}, false
	}

	var number, title string
	var body []string
	for _, p := range v.Paragraphs {
		text := paragraphText(p.Inner)
		if text == "" {
			continue
		}
		if number == "" && (p.Class == "articulo" || len(body) == 0) {
			if n, t, ok := ParseHeading(text); ok {
				number, title = n, t
				continue
			}
		}
		body = append(body, text)
	}
	if number == "" {
		n, t, ok := ParseHeading(b.Titulo)
		if !ok {
			return Article{}, false
		}
		number, title = n, t
	}

	return Article{
		Number:   number,
		Title:    title,
		Content:  Normalize(strings.Join(body, "\n")),
		Vigencia: v.FechaVigencia,
	}, true
}

func latestVersion(vs []xmlVersion) (xmlVersion, bool) {
	if len(vs) == 0 {
		return xmlVersion{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		// Dates are YYYYMMDD so string order is date order. Later entries win ties.
		if v.FechaVigencia >= best.FechaVigencia {
			best = v
		}
	}
	return best, true
}

// ParseHeading splits "Artículo 14 bis. Título del artículo." into ("14 bis", "Título del artículo").
func ParseHeading(s string) (string, string, bool) {
	m := headingRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	number := strings.ToLower(m[1])
	if number == "unico" {
		number = "único"
	}
	if m[2] != "" {
		number += " " + strings.ToLower(m[2])
	}
	title := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[3]), "."))
	return number, title, true
}

func paragraphText(inner string) string {
	return Normalize(html.UnescapeString(tagRe.ReplaceAllString(inner, "")))
}
