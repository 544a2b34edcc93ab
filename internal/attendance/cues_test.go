package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonFromVisualCue(t *testing.T) {
	m := DefaultMarkers()
	tests := []struct {
		name   string
		style  string
		class  string
		want   Reason
		wantOK bool
	}{
		{"vacation", "background-color: rgb(7, 162, 173);", "cell", Vacation, true},
		{"sick leave compact", "background-color:rgb(255,145,83)", "", SickLeave, true},
		{"other", "color: white; background-color: rgb(226, 226, 229);", "", Other, true},
		{"holiday class", "", "htyto4 htytoi", Holiday, true},
		{"holiday class wins over colour", "background-color: rgb(7, 162, 173);", "htytoi", Holiday, true},
		{"class prefix is not a match", "", "htytoix", 0, false},
		{"unmarked", "background-color: rgb(255, 255, 255);", "htyto4", 0, false},
		{"empty", "", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReasonFromVisualCue(tt.style, tt.class, m)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyDetail(t *testing.T) {
	tests := []struct {
		name string
		html string
		want AbsenceKind
	}{
		{"first half", `<div><span>Vacaciones</span><span>1er mitad del día</span></div>`, HalfMorning},
		{"second half", `<div><p><span> 2da  mitad del DIA </span></p></div>`, HalfAfternoon},
		{"no label", `<div><span>Vacaciones</span><span>13 oct - 13 oct</span></div>`, FullDay},
		{"label outside spans", `<div>1er mitad del día</div>`, FullDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyDetail(tt.html, "span", Spanish)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsZeroTotal(t *testing.T) {
	assert.True(t, IsZeroTotal("13 oct 0h 00m", Spanish))
	assert.True(t, IsZeroTotal("13 oct 0h  00m", Spanish))
	assert.False(t, IsZeroTotal("13 oct 8h 30m", Spanish))
	assert.False(t, IsZeroTotal("13 oct 10h 00m", Spanish))
}

func TestRowMatchesDay(t *testing.T) {
	assert.True(t, rowMatchesDay("3 oct 0h 00m", 3))
	assert.False(t, rowMatchesDay("13 oct 0h 00m", 3))
	assert.False(t, rowMatchesDay("3", 3))
	assert.False(t, rowMatchesDay("Añadir", 3))
}

func TestExactTextPattern(t *testing.T) {
	assert.Regexp(t, exactText("3"), " 3 ")
	assert.NotRegexp(t, exactText("3"), "13")
	assert.Regexp(t, exactText("Añadir"), "añadir")
}
