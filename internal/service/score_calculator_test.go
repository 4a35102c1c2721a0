package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroke-code-server/internal/domain"
)

func TestNihssTotal(t *testing.T) {
	t.Run("Untouched assessment scores zero", func(t *testing.T) {
		assert.Equal(t, 0, NihssTotal(domain.NihssAssessment{}))
	})

	t.Run("Sum of subscores", func(t *testing.T) {
		a, err := domain.NewNihssAssessment(map[domain.NihssItem]int{
			domain.NihssConsciousness: 1,
			domain.NihssArmLeft:       4,
			domain.NihssLanguage:      2,
			domain.NihssExtinction:    1,
		})
		require.NoError(t, err)
		assert.Equal(t, 8, NihssTotal(a))
	})

	t.Run("Maximum scores sum to 42", func(t *testing.T) {
		var a domain.NihssAssessment
		for _, item := range domain.NihssItems {
			require.NoError(t, a.Set(item.Key, item.MaxScore))
		}
		assert.Equal(t, 42, NihssTotal(a))
	})

	t.Run("Monotonic in every subscore", func(t *testing.T) {
		for _, item := range domain.NihssItems {
			var a domain.NihssAssessment
			previous := NihssTotal(a)
			for v := 1; v <= item.MaxScore; v++ {
				require.NoError(t, a.Set(item.Key, v))
				total := NihssTotal(a)
				assert.Equal(t, previous+1, total, "item %s", item.Key)
				previous = total
			}
		}
	})
}

func TestAspectsScore(t *testing.T) {
	t.Run("Default is 10", func(t *testing.T) {
		assert.Equal(t, 10, AspectsScore(domain.AspectsAssessment{}))
	})

	t.Run("Toggling one region changes the score by one", func(t *testing.T) {
		for _, region := range domain.AspectsRegions {
			var a domain.AspectsAssessment
			require.NoError(t, a.Set(region.Key, false))
			assert.Equal(t, 9, AspectsScore(a), "region %s", region.Key)
			require.NoError(t, a.Set(region.Key, true))
			assert.Equal(t, 10, AspectsScore(a), "region %s", region.Key)
		}
	})

	t.Run("All regions affected", func(t *testing.T) {
		var a domain.AspectsAssessment
		for _, region := range domain.AspectsRegions {
			require.NoError(t, a.Set(region.Key, false))
		}
		assert.Equal(t, 0, AspectsScore(a))
	})
}

func TestRtpaDose(t *testing.T) {
	weight := func(w float64) *float64 { return &w }

	tests := []struct {
		name   string
		weight *float64
		want   *domain.RtpaDose
	}{
		{
			name:   "70 kg",
			weight: weight(70),
			want:   &domain.RtpaDose{Total: 63.0, Bolus: 6.3, Infusion: 56.7},
		},
		{
			name:   "Capped at 90 mg",
			weight: weight(150),
			want:   &domain.RtpaDose{Total: 90.0, Bolus: 9.0, Infusion: 81.0},
		},
		{
			name:   "Exactly at the cap",
			weight: weight(100),
			want:   &domain.RtpaDose{Total: 90.0, Bolus: 9.0, Infusion: 81.0},
		},
		{
			name:   "80 kg",
			weight: weight(80),
			want:   &domain.RtpaDose{Total: 72.0, Bolus: 7.2, Infusion: 64.8},
		},
		{name: "Absent weight", weight: nil, want: nil},
		{name: "Zero weight", weight: weight(0), want: nil},
		{name: "Negative weight", weight: weight(-10), want: nil},
		{name: "Not a number", weight: weight(math.NaN()), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RtpaDose(tt.weight)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want.Total, got.Total, 1e-9)
			assert.InDelta(t, tt.want.Bolus, got.Bolus, 1e-9)
			assert.InDelta(t, tt.want.Infusion, got.Infusion, 1e-9)
		})
	}
}
