package export

import "strings"

// Floor bucket names. Chapters in the Areas book are named after these.
const (
	BucketGroundFloor = "Ground Floor"
	BucketFirstFloor  = "First Floor"
	BucketBasement    = "Basement"
	BucketAttic       = "Attic"
	BucketOutside     = "Outside"

	// BucketOther catches areas no keyword list matches. It is not part of
	// the fixed enumeration and only materializes when needed.
	BucketOther = "Other Areas"
)

type floorBucket struct {
	Name     string
	Keywords []string
}

// floorBuckets is evaluated in this exact order; the first bucket with a
// matching keyword wins. "Loft Office" lands on First Floor because "office"
// is checked before Attic's "loft".
var floorBuckets = []floorBucket{
	{BucketGroundFloor, []string{"living", "kitchen", "garage", "entrance", "dining"}},
	{BucketFirstFloor, []string{"bedroom", "bathroom", "office", "guest"}},
	{BucketBasement, []string{"basement", "cellar"}},
	{BucketAttic, []string{"attic", "loft"}},
	{BucketOutside, []string{"garden", "patio", "balcony", "driveway", "outside"}},
}

// BucketOrder returns the bucket names in their fixed evaluation order,
// with the catch-all bucket last.
func BucketOrder() []string {
	order := make([]string, 0, len(floorBuckets)+1)
	for _, b := range floorBuckets {
		order = append(order, b.Name)
	}
	return append(order, BucketOther)
}

// ClassifyArea maps an area name onto exactly one floor bucket by substring
// containment against the lowered name.
func ClassifyArea(name string) string {
	lower := strings.ToLower(name)
	for _, bucket := range floorBuckets {
		for _, keyword := range bucket.Keywords {
			if strings.Contains(lower, keyword) {
				return bucket.Name
			}
		}
	}
	return BucketOther
}
