package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evpack/core/model"
)

func TestParseHealingCSV(t *testing.T) {
	data := "cell_index,restored_psi,restored_tension\n0,0.6,0.61\n1, ,0.7\n2,0.55,\n"
	recs, err := ParseHealingCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, 0, recs[0].CellIndex)
	assert.True(t, recs[0].Complete())
	assert.Equal(t, 0.61, *recs[0].RestoredTension)
	assert.Nil(t, recs[1].RestoredPsi)
	assert.Equal(t, 0.7, *recs[1].RestoredTension)
	assert.Nil(t, recs[2].RestoredTension)
}

func TestParseHealingCSVColumnOrder(t *testing.T) {
	data := "restored_tension,cell_index,restored_psi\n0.6,4,0.5\n"
	recs, err := ParseHealingCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 4, recs[0].CellIndex)
	assert.Equal(t, 0.5, *recs[0].RestoredPsi)
}

func TestParseHealingCSVErrors(t *testing.T) {
	_, err := ParseHealingCSV(strings.NewReader("cell_index,restored_psi\n0,0.5\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn))

	_, err = ParseHealingCSV(strings.NewReader("cell_index,restored_psi,restored_tension\n0,abc,0.5\n"))
	assert.ErrorContains(t, err, "line 2")

	recs, err := ParseHealingCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestHealingJSONRoundTrip(t *testing.T) {
	recs := []model.HealingRecord{
		model.NewHealingRecord(0, 0.6, 0.61),
		{CellIndex: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteHealingJSON(&buf, recs))
	back, err := LoadHealingJSON(&buf)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, 0.6, *back[0].RestoredPsi)
	assert.Nil(t, back[1].RestoredPsi)
}

func TestWriteHealingJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHealingJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
