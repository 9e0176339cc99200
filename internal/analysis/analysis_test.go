package analysis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/models"
)

func rec(city, date string, cases int) models.Record {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.Record{City: city, Date: d, Cases: cases}
}

func TestThresholdsClassify(t *testing.T) {
	tests := []struct {
		cases int
		want  Tier
	}{
		{0, TierLow},
		{500, TierLow},
		{501, TierMedium},
		{1000, TierMedium},
		{1001, TierHigh},
		{250000, TierHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultThresholds.Classify(tt.cases), "cases=%d", tt.cases)
	}
}

func TestClassifyRiskZones_FirstRecordWins(t *testing.T) {
	c := models.Collection{
		rec("A", "2021-01-01", 1500),
		rec("A", "2021-01-02", 10),
	}
	zones := ClassifyRiskZones(c)

	tier, ok := zones.Tier("A")
	require.True(t, ok)
	assert.Equal(t, TierHigh, tier)
	assert.Len(t, zones, 1)
}

func TestClassifyRiskZones_LaterHighRecordIgnored(t *testing.T) {
	c := models.Collection{
		rec("B", "2021-01-01", 10),
		rec("B", "2021-01-02", 5000),
	}
	assert.Equal(t, map[string]Tier{"B": TierLow}, ClassifyRiskZones(c).Map())
}

func TestClassifyRiskZones_OrderAndTiers(t *testing.T) {
	c := models.Collection{
		rec("Lagos", "2021-01-01", 700),
		rec("Oslo", "2021-01-01", 3),
		rec("Lima", "2021-01-01", 1200),
		rec("Oslo", "2021-01-02", 9000),
	}
	want := RiskZones{
		{City: "Lagos", Tier: TierMedium},
		{City: "Oslo", Tier: TierLow},
		{City: "Lima", Tier: TierHigh},
	}
	assert.Equal(t, want, ClassifyRiskZones(c))

	_, ok := ClassifyRiskZones(c).Tier("Paris")
	assert.False(t, ok)
}

func TestClassifyRiskZones_CustomThresholds(t *testing.T) {
	th := Thresholds{High: 100, Medium: 10}
	c := models.Collection{rec("A", "2021-01-01", 50), rec("B", "2021-01-01", 101)}
	assert.Equal(t, map[string]Tier{"A": TierMedium, "B": TierHigh}, th.ClassifyRiskZones(c).Map())
}

func TestClassifyRiskZones_Empty(t *testing.T) {
	zones := ClassifyRiskZones(nil)
	assert.NotNil(t, zones)
	assert.Empty(t, zones)
}

func TestPredictHotspot(t *testing.T) {
	c := models.Collection{
		rec("A", "2021-01-01", 600),
		rec("B", "2021-01-01", 300),
		rec("A", "2021-01-02", 600),
	}
	h, err := PredictHotspot(c)
	require.NoError(t, err)
	assert.Equal(t, Hotspot{City: "A", TotalCases: 1200}, h)

	assert.Equal(t, []CityTotal{{"A", 1200}, {"B", 300}}, CityTotals(c))
}

func TestPredictHotspot_TieGoesToFirstInserted(t *testing.T) {
	c := models.Collection{
		rec("B", "2021-01-01", 5),
		rec("A", "2021-01-01", 5),
	}
	h, err := PredictHotspot(c)
	require.NoError(t, err)
	assert.Equal(t, "B", h.City)

	c = models.Collection{
		rec("A", "2021-01-01", 2),
		rec("B", "2021-01-01", 4),
		rec("A", "2021-01-02", 2),
	}
	h, err = PredictHotspot(c)
	require.NoError(t, err)
	assert.Equal(t, Hotspot{City: "A", TotalCases: 4}, h, "A reached the tie later but appeared first")
}

func TestPredictHotspot_Empty(t *testing.T) {
	_, err := PredictHotspot(models.Collection{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrEmptyInput)

	_, err = PredictHotspot(nil)
	assert.ErrorIs(t, err, apperr.ErrEmptyInput)
}

func TestPredictHotspot_AllZero(t *testing.T) {
	c := models.Collection{rec("X", "2021-01-01", 0), rec("Y", "2021-01-01", 0)}
	h, err := PredictHotspot(c)
	require.NoError(t, err)
	assert.Equal(t, Hotspot{City: "X", TotalCases: 0}, h)
}

func TestTrendSeries_InsertionOrder(t *testing.T) {
	c := models.Collection{
		rec("X", "2021-01-01", 5),
		rec("Y", "2021-01-01", 1),
		rec("X", "2021-01-03", 9),
		rec("X", "2021-01-02", 7),
	}
	series := TrendSeries(c)
	require.Len(t, series, 2)

	assert.Equal(t, "X", series[0].City)
	require.Len(t, series[0].Points, 3)
	var dates []string
	var cases []int
	for _, p := range series[0].Points {
		dates = append(dates, p.Date.Format("2006-01-02"))
		cases = append(cases, p.Cases)
	}
	assert.Equal(t, []string{"2021-01-01", "2021-01-03", "2021-01-02"}, dates)
	assert.Equal(t, []int{5, 9, 7}, cases)

	assert.Equal(t, "Y", series[1].City)
	assert.Len(t, series[1].Points, 1)
}

func TestTrendSeries_Empty(t *testing.T) {
	series := TrendSeries(nil)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestSeriesFor(t *testing.T) {
	c := models.Collection{rec("X", "2021-01-01", 5), rec("Y", "2021-01-01", 1)}

	s, ok := SeriesFor(c, "Y")
	require.True(t, ok)
	assert.Equal(t, "Y", s.City)

	_, ok = SeriesFor(c, "Z")
	assert.False(t, ok)
}

func TestSeriesJSON(t *testing.T) {
	s := Series{City: "X", Points: []TrendPoint{{Date: rec("X", "2021-01-02", 0).Date, Cases: 7}}}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"X","points":[{"date":"2021-01-02","cases":7}]}`, string(data))
}

func TestAnalysisDoesNotMutate(t *testing.T) {
	c := models.Collection{rec("A", "2021-01-01", 600), rec("B", "2021-01-01", 300)}
	before := c.Clone()

	_ = ClassifyRiskZones(c)
	_, _ = PredictHotspot(c)
	_ = TrendSeries(c)

	assert.Equal(t, before, c)
}
