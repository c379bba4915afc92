package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceName(t *testing.T) {
	for in, want := range map[string]SourceName{
		"minjust": Minjust,
		" FSB ":   FSB,
		"fedsfm":  Fedsfm,
		"fedfsm":  Fedsfm,
	} {
		got, ok := ParseSourceName(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseSourceName("rkn")
	assert.False(t, ok)
}

func TestNewEntry(t *testing.T) {
	_, ok := NewEntry(FSB, "   ", "details")
	assert.False(t, ok)

	e, ok := NewEntry(Minjust, "  Рога и Копыта (РИК) ", "")
	require.True(t, ok)
	assert.Equal(t, "Рога и Копыта (РИК)", e.Name)
	assert.Contains(t, e.SearchTokens, "рога и копыта")
	assert.Contains(t, e.SearchTokens, "rik")
}

type namedSource struct {
	Source
	name SourceName
}

func (s namedSource) Name() SourceName { return s.name }

func TestRegistryOrder(t *testing.T) {
	Register(namedSource{name: FSB})
	Register(namedSource{name: Minjust})
	Register(namedSource{name: Fedsfm})
	Register(namedSource{name: "unlisted"})

	var names []SourceName
	for _, s := range All() {
		names = append(names, s.Name())
	}
	assert.Equal(t, Order, names)

	_, ok := Get("unlisted")
	assert.True(t, ok)
}

type stepDriver struct {
	Driver
	clicks []string
	err    error
}

func (d *stepDriver) Click(_ context.Context, sel string, _ time.Duration) error {
	d.clicks = append(d.clicks, sel)
	return d.err
}

func TestClickStepWithoutConfirm(t *testing.T) {
	d := &stepDriver{}
	step := ClickStep("open", "#a", "", StepTimeouts{})
	require.NoError(t, RunSteps(context.Background(), d, []Step{step, step}))
	assert.Equal(t, []string{"#a", "#a"}, d.clicks)
}

func TestRunStepsStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("detached")
	d := &stepDriver{err: boom}
	steps := []Step{
		ClickStep("first", "#a", "", StepTimeouts{}),
		ClickStep("second", "#b", "", StepTimeouts{}),
	}
	err := RunSteps(context.Background(), d, steps)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `step "first": click #a`)
	assert.Equal(t, []string{"#a"}, d.clicks)
}

func TestPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Pause(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Pause(context.Background(), time.Millisecond))
}

func TestText(t *testing.T) {
	doc := Document("<p id=x>  a \n\t b  <b>c</b></p>")
	require.NotNil(t, doc)
	assert.Equal(t, "a b c", Text(doc.Find("#x")))
}

func TestCellText(t *testing.T) {
	doc := Document(`<table><tr>
<td id="br">Маджлисуль Шура<br>(Высший военный совет)</td>
<td id="p"><p>Организация Альфа</p><p>Аль-Каида</p></td>
<td id="inline">  a <b>b</b>  </td>
</tr></table>`)
	require.NotNil(t, doc)

	assert.Equal(t, "Маджлисуль Шура (Высший военный совет)", CellText(doc.Find("#br")))
	assert.Equal(t, "Организация Альфа Аль-Каида", CellText(doc.Find("#p")))
	assert.Equal(t, "a b", CellText(doc.Find("#inline")))
	assert.Equal(t, "Организация АльфаАль-Каида", Text(doc.Find("#p")))
}
