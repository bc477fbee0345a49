package boe

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0" encoding="utf-8"?>
<response>
  <status><code>200</code></status>
  <data>
    <texto>
      <bloque id="preambulo" tipo="preambulo" titulo="Preámbulo">
        <version fecha_vigencia="19781229"><p class="parrafo">La Nación española...</p></version>
      </bloque>
      <bloque id="a1" tipo="precepto" titulo="Artículo 1">
        <version id_norma="BOE-A-1978-31229" fecha_publicacion="19781229" fecha_vigencia="19781229">
          <p class="articulo">Artículo 1.</p>
          <p class="parrafo">1. España se constituye en un Estado social y democrático de Derecho.</p>
          <p class="parrafo">2. La soberanía   nacional reside en el pueblo español.</p>
        </version>
      </bloque>
      <bloque id="a13" tipo="precepto" titulo="Artículo 13">
        <version fecha_vigencia="19781229">
          <p class="articulo">Artículo 13.</p>
          <p class="parrafo">Texto original.</p>
        </version>
        <version fecha_vigencia="19920828">
          <p class="articulo">Artículo 13.</p>
          <p class="parrafo">Texto reformado con <a href="#">referencia</a> &amp; más.</p>
        </version>
      </bloque>
      <bloque id="a14bis" tipo="precepto" titulo="Artículo 14 bis">
        <version fecha_vigencia="20200101">
          <p class="articulo">Artículo 14 bis. Igualdad “efectiva”.</p>
          <p class="parrafo">Los poderes públicos – todos ellos – promoverán...</p>
        </version>
      </bloque>
      <bloque id="da1" tipo="precepto" titulo="Disposición adicional primera">
        <version fecha_vigencia="19781229"><p class="parrafo">Se amparan los derechos históricos.</p></version>
      </bloque>
    </texto>
  </data>
</response>`

func TestParseConsolidated(t *testing.T) {
	got, err := ParseConsolidated(strings.NewReader(sample))
	require.NoError(t, err)

	want := []Article{
		{
			Number:   "1",
			Content:  "1. España se constituye en un Estado social y democrático de Derecho.\n2. La soberanía nacional reside en el pueblo español.",
			Vigencia: "19781229",
		},
		{Number: "13", Content: "Texto reformado con referencia & más.", Vigencia: "19920828"},
		{Number: "14 bis", Title: `Igualdad "efectiva"`, Content: "Los poderes públicos - todos ellos - promoverán...", Vigencia: "20200101"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseConsolidated mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConsolidated_Empty(t *testing.T) {
	_, err := ParseConsolidated(strings.NewReader(`<response><data><texto></texto></data></response>`))
	assert.ErrorIs(t, err, ErrNoArticles)

	_, err = ParseConsolidated(strings.NewReader(`<response><data>`))
	assert.Error(t, err)
}

func TestParseHeading(t *testing.T) {
	cases := []struct {
		in, number, title string
		ok                bool
	}{
		{"Artículo 1.", "1", "", true},
		{"Artículo 14 bis. Igualdad.", "14 bis", "Igualdad", true},
		{"ARTICULO 2.1 Objeto", "2.1", "Objeto", true},
		{"Artículo único. Modificación de la Ley.", "único", "Modificación de la Ley", true},
		{"Disposición final primera", "", "", false},
	}
	for _, c := range cases {
		n, title, ok := ParseHeading(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.number, n, c.in)
		assert.Equal(t, c.title, title, c.in)
	}
}

func TestNormalizeAndFold(t *testing.T) {
	assert.Equal(t, "a \"b\" - c\nd", Normalize("  a  “b” — c \r\n\n\t d  "))
	assert.Equal(t, "articulo unico, espana", Fold("Artículo Único, España"))
	assert.Equal(t, Hash("texto  con espacios"), Hash("texto con espacios"))
	assert.NotEqual(t, Hash("uno"), Hash("dos"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("El Estado", "el estado"))
	assert.Equal(t, 0.0, Similarity("uno dos", "tres cuatro"))
	// LCS("a b c d", "a x c d") = 3 → 2·3/8
	assert.InDelta(t, 0.75, Similarity("a b c d", "a x c d"), 1e-9)
}

func TestDiff(t *testing.T) {
	stored := []Stored{
		{ID: 1, Number: "1", Content: "España se constituye en un Estado social."},
		{ID: 2, Number: "2", Content: "La Constitución se fundamenta en la unidad."},
		{ID: 3, Number: "3", Content: "El castellano es la lengua oficial."},
	}
	fetched := []Article{
		{Number: "1", Content: "ESPAÑA se constituye en un   Estado social."},
		{Number: "2", Content: "La Constitución se fundamenta en la indisoluble unidad."},
		{Number: "4", Content: "La bandera de España."},
	}

	got := Diff(stored, fetched)
	type row struct {
		Number, Type string
		StoredID     int64
	}
	rows := make([]row, len(got))
	for i, c := range got {
		rows[i] = row{c.Number, c.Type, c.StoredID}
	}
	want := []row{
		{"1", Unchanged, 1},
		{"2", Modified, 2},
		{"4", New, 0},
		{"3", Removed, 3},
	}
	if diff := cmp.Diff(want, rows, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}

	assert.Greater(t, got[1].Similarity, 0.8)
	assert.Less(t, got[1].Similarity, 1.0)
	assert.NotEqual(t, got[1].OldHash, got[1].NewHash)
	assert.Equal(t, Hash(fetched[2].Content), got[2].NewHash)
	assert.Nil(t, got[3].Fetched)
}
