package series_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaster_go/internal/models"
	"coaster_go/internal/series"
)

// scenario é a série de três pontos usada em vários testes
func scenario() []models.RawSample {
	return []models.RawSample{
		{Timestamp: 0, Magnitude: 10, LongPortion: 1, ShortPortion: 1},
		{Timestamp: 50, Magnitude: 20, LongPortion: 2, ShortPortion: 1},
		{Timestamp: 100, Magnitude: 30, LongPortion: 1, ShortPortion: 2},
	}
}

func synthetic(n int) []models.RawSample {
	raw := make([]models.RawSample, n)
	for i := range raw {
		raw[i] = models.RawSample{
			Timestamp:    int64(1_700_000_000 + i*3600),
			Magnitude:    1e6 + 5e5*math.Sin(float64(i)/7),
			LongPortion:  1 + float64(i%5),
			ShortPortion: 1 + float64(i%3),
		}
	}
	return raw
}

func TestNormalize_Scenario(t *testing.T) {
	norm, b, err := series.Normalize(scenario(), series.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, norm, 3)

	assert.Equal(t, series.Sample{T: 0, V: 0, Ratio: 1}, norm[0])
	assert.Equal(t, series.Sample{T: 0.5, V: 0.5, Ratio: 2}, norm[1])
	assert.Equal(t, series.Sample{T: 1, V: 1, Ratio: 0.5}, norm[2])

	assert.Equal(t, 0.0, b.MinTimestamp)
	assert.Equal(t, 100.0, b.MaxTimestamp)
	assert.Equal(t, 10.0, b.MinMagnitude)
	assert.Equal(t, 30.0, b.MaxMagnitude)
}

func TestNormalize_TooFewSamples(t *testing.T) {
	_, _, err := series.Normalize(nil, series.DefaultOptions())
	assert.ErrorIs(t, err, series.ErrInsufficientSamples)

	_, _, err = series.Normalize(scenario()[:1], series.DefaultOptions())
	assert.ErrorIs(t, err, series.ErrInsufficientSamples)
}

func TestNormalize_NegativeValue(t *testing.T) {
	raw := scenario()
	raw[1].Magnitude = -1
	_, _, err := series.Normalize(raw, series.DefaultOptions())
	assert.ErrorIs(t, err, series.ErrNegativeValue)
}

func TestNormalize_DegenerateRange(t *testing.T) {
	raw := []models.RawSample{
		{Timestamp: 10, Magnitude: 5, LongPortion: 1, ShortPortion: 1},
		{Timestamp: 10, Magnitude: 5, LongPortion: 1, ShortPortion: 1},
	}
	norm, b, err := series.Normalize(raw, series.DefaultOptions())
	require.NoError(t, err)

	for _, s := range norm {
		assert.Equal(t, 0.5, s.T, "tempo constante vira 0.5")
		assert.Equal(t, 0.5, s.V, "magnitude constante vira 0.5")
	}
	assert.Equal(t, 5.0, b.Magnitude(0.5))
	assert.Equal(t, 10.0, b.Timestamp(0.5))
}

func TestRatio_ZeroShort(t *testing.T) {
	assert.Equal(t, 2.0, series.Ratio(3, 0, 2))
	assert.Equal(t, 1.0, series.Ratio(0, 0, 2))
	assert.Equal(t, 0.0, series.Ratio(0, 4, 2))
	assert.Equal(t, 1.5, series.Ratio(3, 2, 2))

	raw := scenario()
	raw[0].ShortPortion = 0
	norm, _, err := series.Normalize(raw, series.Options{RatioSentinel: 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, norm[0].Ratio)
	assert.False(t, math.IsInf(norm[0].Ratio, 0))
}

func TestNormalize_RoundTrip(t *testing.T) {
	raw := synthetic(137)
	norm, b, err := series.Normalize(raw, series.DefaultOptions())
	require.NoError(t, err)

	for i, s := range norm {
		assert.InDelta(t, raw[i].Magnitude, b.Magnitude(s.V), 1e-6)
		assert.InDelta(t, float64(raw[i].Timestamp), b.Timestamp(s.T), 1e-3)
		assert.GreaterOrEqual(t, s.T, 0.0)
		assert.LessOrEqual(t, s.T, 1.0)
		assert.GreaterOrEqual(t, s.V, 0.0)
		assert.LessOrEqual(t, s.V, 1.0)
	}
}

func TestReduce_EndpointExactness(t *testing.T) {
	for _, length := range []int{2, 3, 7, 24, 25, 26, 99, 500} {
		for _, n := range []int{1, 3, 25, 40} {
			norm, _, err := series.Normalize(synthetic(length), series.DefaultOptions())
			require.NoError(t, err)

			reduced := series.ReduceWithEndpoints(norm, n)
			require.GreaterOrEqual(t, len(reduced), 3)
			assert.Equal(t, norm[0], reduced[0], "len=%d n=%d", length, n)
			assert.Equal(t, norm[len(norm)-1], reduced[len(reduced)-1], "len=%d n=%d", length, n)
		}
	}
}

func TestReduce_BucketCount(t *testing.T) {
	cases := []struct {
		length, n, want int
	}{
		{500, 25, 25},
		{26, 25, 25},
		{25, 25, 25},
		{49, 25, 25},
		{10, 25, 10},
		{3, 1, 1},
		{2, 25, 2},
	}

	for _, tc := range cases {
		norm, _, err := series.Normalize(synthetic(tc.length), series.DefaultOptions())
		require.NoError(t, err)

		reduced := series.Reduce(norm, tc.n)
		assert.Len(t, reduced, tc.want, "len=%d n=%d", tc.length, tc.n)
		assert.LessOrEqual(t, len(reduced), tc.n)
	}
}

func TestReduce_DefaultBuckets(t *testing.T) {
	norm, _, err := series.Normalize(synthetic(100), series.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, series.Reduce(norm, 0), series.DefaultBuckets)
}

func TestReduce_Means(t *testing.T) {
	samples := []series.Sample{
		{T: 0, V: 0, Ratio: 1},
		{T: 0.2, V: 1, Ratio: 3},
		{T: 0.4, V: 0.5, Ratio: 2},
		{T: 0.6, V: 0.5, Ratio: 0},
	}
	reduced := series.Reduce(samples, 2)
	require.Len(t, reduced, 2)
	assert.InDelta(t, 0.1, reduced[0].T, 1e-12)
	assert.InDelta(t, 0.5, reduced[0].V, 1e-12)
	assert.InDelta(t, 2.0, reduced[0].Ratio, 1e-12)
	assert.InDelta(t, 0.5, reduced[1].T, 1e-12)
	assert.InDelta(t, 0.5, reduced[1].V, 1e-12)
	assert.InDelta(t, 1.0, reduced[1].Ratio, 1e-12)
}

func TestReduce_ScenarioSingleBucket(t *testing.T) {
	norm, _, err := series.Normalize(scenario(), series.DefaultOptions())
	require.NoError(t, err)

	reduced := series.ReduceWithEndpoints(norm, 1)
	require.Len(t, reduced, 3)
	assert.InDelta(t, 0.5, reduced[1].T, 1e-12)
	assert.InDelta(t, 0.5, reduced[1].V, 1e-12)
	assert.InDelta(t, 3.5/3, reduced[1].Ratio, 1e-12)
}

func TestReduceWithEndpoints_Empty(t *testing.T) {
	assert.Nil(t, series.ReduceWithEndpoints(nil, 5))
}
