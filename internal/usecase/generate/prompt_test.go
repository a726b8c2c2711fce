package generate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(mustDate("2025-07-20"))

	assert.Contains(t, got, "20 de julio")
	assert.Contains(t, got, "anterior a 2025")
	for _, field := range []string{"historical_date", "title", "description", "category", "sources"} {
		assert.Contains(t, got, `"`+field+`"`)
	}
	assert.Contains(t, got, "Ciencia, Arte, Política, Deportes, Tecnología, Espacio, Historia")
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "enero", MonthName(time.January))
	assert.Equal(t, "septiembre", MonthName(time.September))
	assert.Equal(t, "diciembre", MonthName(time.December))
}

func TestPreamble_FreshCopy(t *testing.T) {
	p := Preamble()
	assert.Len(t, p, 2)
	assert.Equal(t, RoleUser, p[0].Role)
	assert.Equal(t, RoleModel, p[1].Role)

	p[0].Text = "changed"
	assert.NotEqual(t, "changed", Preamble()[0].Text)
}
