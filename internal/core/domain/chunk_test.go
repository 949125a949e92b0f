package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestChunk_SpeakerLabel tests speaker label rendering
func TestChunk_SpeakerLabel(t *testing.T) {
	tests := []struct {
		name     string
		speakers []string
		want     string
	}{
		{"single speaker", []string{"Speaker A"}, "Speaker A"},
		{"two speakers", []string{"Speaker A", "Speaker B"}, "Speaker A, Speaker B"},
		{"no speakers", nil, UnknownSpeaker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Chunk{SpeakerIDs: tt.speakers}
			assert.Equal(t, tt.want, c.SpeakerLabel())
		})
	}
}

// TestChunk_PrimarySpeaker tests that the last listed speaker wins
func TestChunk_PrimarySpeaker(t *testing.T) {
	c := Chunk{SpeakerIDs: []string{"Speaker A", "Speaker B"}}
	assert.Equal(t, "Speaker B", c.PrimarySpeaker())

	empty := Chunk{}
	assert.Equal(t, UnknownSpeaker, empty.PrimarySpeaker())
}

// TestChunk_Validate tests structural invariants
func TestChunk_Validate(t *testing.T) {
	valid := Chunk{
		ID:           "tr-1:0",
		TranscriptID: "tr-1",
		SpeakerIDs:   []string{"Speaker A"},
		Text:         "hello there",
		StartMS:      0,
		EndMS:        2000,
	}
	assert.NoError(t, valid.Validate())

	noID := valid
	noID.ID = ""
	assert.ErrorIs(t, noID.Validate(), ErrInvalidInput)

	noText := valid
	noText.Text = ""
	assert.ErrorIs(t, noText.Validate(), ErrInvalidInput)

	badSpan := valid
	badSpan.EndMS = valid.StartMS
	assert.ErrorIs(t, badSpan.Validate(), ErrInvalidInput)
}
