package analytics

import (
	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
)

// Distribution labels every row of view by its measure value and counts rows
// per category. The defined categories are always present, in severity order;
// Unknown is appended only when some row had no usable value.
func Distribution(view dataset.View, measure string) ([]models.CategoryCount, error) {
	col, err := column(view, measure)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Category]int)
	for k := 0; k < view.Len(); k++ {
		counts[models.Categorize(col.At(view.Row(k)))]++
	}

	out := make([]models.CategoryCount, 0, len(models.Categories())+1)
	for _, c := range models.Categories() {
		out = append(out, models.CategoryCount{Category: c, Count: counts[c]})
	}
	if n := counts[models.CategoryUnknown]; n > 0 {
		out = append(out, models.CategoryCount{Category: models.CategoryUnknown, Count: n})
	}
	return out, nil
}

// Labels returns the category of every row of view, in view order.
func Labels(view dataset.View, measure string) ([]models.Category, error) {
	col, err := column(view, measure)
	if err != nil {
		return nil, err
	}
	out := make([]models.Category, view.Len())
	for k := range out {
		out[k] = models.Categorize(col.At(view.Row(k)))
	}
	return out, nil
}
