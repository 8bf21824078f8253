package ml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCSV = `Dish Name,Calories (kcal),Carbs (g),Protein (g),Fat (g)
Pav Bhaji,300.4,45.2,8.1,10.3
Masala Dosa,250.0,38.5,6.2,8.7
Chole Bhature,450.7,52.3,12.4,20.1
Paneer Tikka,280.3,10.2,18.6,17.9
Aloo Paratha,320.5,48.6,7.3,11.2
`

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := ReadDataset(strings.NewReader(sampleCSV), DefaultColumns())
	require.NoError(t, err)
	return ds
}

func trainSample(t *testing.T) *Artifact {
	t.Helper()
	artifact, _, err := Train(sampleDataset(t), DefaultTrainingOptions())
	require.NoError(t, err)
	return artifact
}
