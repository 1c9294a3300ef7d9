package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrintParams_A4Portrait(t *testing.T) {
	params := buildPrintParams(&RenderRequest{HTML: "<html>test</html>"})

	assert.InDelta(t, mmToInches(210), params.paperWidth, 0.01)
	assert.InDelta(t, mmToInches(297), params.paperHeight, 0.01)
	assert.InDelta(t, mmToInches(18), params.marginTop, 0.001)
	assert.InDelta(t, mmToInches(15), params.marginSide, 0.001)
	assert.False(t, params.displayFooter)
}

func TestBuildPrintParams_WithFooter(t *testing.T) {
	params := buildPrintParams(&RenderRequest{HTML: "x", FooterHTML: "<div>1</div>"})

	assert.True(t, params.displayFooter)
	assert.Equal(t, "<div>1</div>", params.footerTemplate)
}

func TestBuildCompleteHTML(t *testing.T) {
	t.Run("full document is kept", func(t *testing.T) {
		doc := "<!DOCTYPE html><html><body>test</body></html>"
		assert.Equal(t, doc, buildCompleteHTML(&RenderRequest{HTML: doc}))
	})

	t.Run("fragment is wrapped", func(t *testing.T) {
		result := buildCompleteHTML(&RenderRequest{HTML: "<div>Hello</div>", Title: "A & B"})

		assert.Contains(t, result, "<!DOCTYPE html>")
		assert.Contains(t, result, `<meta charset="UTF-8">`)
		assert.Contains(t, result, "<title>A &amp; B</title>")
		assert.Contains(t, result, "<body><div>Hello</div></body></html>")
	})
}

func TestMmToInches(t *testing.T) {
	assert.InDelta(t, 1.0, mmToInches(25.4), 0.0001)
	assert.InDelta(t, 8.2677, mmToInches(210), 0.001)
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF")))
	pdf := []byte("/Type /Pages /Type /Page /Type /Page /Type /Page")
	assert.Equal(t, 3, estimatePageCount(pdf))
}

func TestChromedpRenderer_RejectsEmptyInput(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{}}

	_, err := r.Render(context.Background(), nil)
	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)

	_, err = r.Render(context.Background(), &RenderRequest{HTML: "   "})
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)
}

func TestChromedpRenderer_Close(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{}}
	assert.NoError(t, r.Close())
}

func TestRenderError(t *testing.T) {
	cause := errors.New("ws closed")
	err := NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", cause)

	assert.Equal(t, "chromedp execution failed: ws closed", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "x", NewRenderError(ErrCodeRenderFailed, "x", nil).Error())
}
