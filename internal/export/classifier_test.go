package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyArea(t *testing.T) {
	tests := []struct {
		name string
		area string
		want string
	}{
		{"kitchen is ground floor", "Kitchen", BucketGroundFloor},
		{"garage is ground floor", "Garage", BucketGroundFloor},
		{"living room is ground floor", "Living Room", BucketGroundFloor},
		{"master bedroom is first floor", "Master Bedroom", BucketFirstFloor},
		{"guest bathroom is first floor", "Guest Bathroom", BucketFirstFloor},
		{"wine cellar is basement", "Wine Cellar", BucketBasement},
		{"attic is attic", "Attic", BucketAttic},
		{"loft is attic", "Loft", BucketAttic},
		{"garden is outside", "Garden", BucketOutside},
		{"driveway is outside", "Front Driveway", BucketOutside},
		{"unmatched names fall back", "Zen Room", BucketOther},
		{"empty name falls back", "", BucketOther},
		{"matching is case-insensitive", "KITCHEN", BucketGroundFloor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyArea(tt.area))
		})
	}
}

// "Loft Office" contains both a First Floor keyword ("office") and an Attic
// keyword ("loft"); the First Floor group is evaluated earlier and must win.
func TestClassifyArea_FixedEvaluationOrder(t *testing.T) {
	assert.Equal(t, BucketFirstFloor, ClassifyArea("Loft Office"))
	assert.Equal(t, BucketGroundFloor, ClassifyArea("Garage Office"))
}

func TestClassifyArea_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, ClassifyArea("Loft Office"), ClassifyArea("Loft Office"))
	}
}

func TestBucketOrder(t *testing.T) {
	order := BucketOrder()
	assert.Equal(t, []string{
		BucketGroundFloor, BucketFirstFloor, BucketBasement,
		BucketAttic, BucketOutside, BucketOther,
	}, order)
}
