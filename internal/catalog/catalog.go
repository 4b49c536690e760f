// Package catalog содержит статический справочник категорий пожертвований.
package catalog

import "github.com/mmeshcher/donation-ledger/internal/model"

// Catalog предоставляет доступ к упорядоченному набору категорий.
// Справочник неизменяем после создания и безопасен для конкурентного чтения.
type Catalog struct {
	ordered []model.Category
	byID    map[string]model.Category
}

// New создаёт справочник из переданных категорий, сохраняя порядок следования.
func New(categories []model.Category) *Catalog {
	c := &Catalog{
		ordered: make([]model.Category, 0, len(categories)),
		byID:    make(map[string]model.Category, len(categories)),
	}
	for _, cat := range categories {
		if _, ok := c.byID[cat.ID]; ok {
			continue
		}
		c.ordered = append(c.ordered, cat)
		c.byID[cat.ID] = cat
	}
	return c
}

// Default возвращает справочник категорий платформы.
func Default() *Catalog {
	return New([]model.Category{
		{
			ID:          "zakat",
			Title:       "Zakat",
			Description: "Fulfill your religious obligation by giving Zakat to those in need.",
			MinAmount:   50,
			ColorTag:    "#22c55e",
			IconTag:     "Heart",
		},
		{
			ID:          "sadqah",
			Title:       "Sadqah",
			Description: "Voluntary charity to earn blessings and help the less fortunate.",
			MinAmount:   10,
			ColorTag:    "#f59e0b",
			IconTag:     "HandHeart",
		},
		{
			ID:          "education",
			Title:       "Education",
			Description: "Support underprivileged students with scholarships and resources.",
			MinAmount:   25,
			ColorTag:    "#3b82f6",
			IconTag:     "BookOpen",
		},
		{
			ID:          "health",
			Title:       "Health",
			Description: "Fund medical treatments and healthcare for those who cannot afford it.",
			MinAmount:   30,
			ColorTag:    "#ef4444",
			IconTag:     "Stethoscope",
		},
		{
			ID:          "emergency",
			Title:       "Emergency Relief",
			Description: "Provide immediate aid to disaster victims and crisis situations.",
			MinAmount:   20,
			ColorTag:    "#8b5cf6",
			IconTag:     "AlertTriangle",
		},
		{
			ID:          "gaza",
			Title:       "Gaza Funds",
			Description: "Provide immediate aid to Gaza civilians and rebuild resources.",
			MinAmount:   20,
			ColorTag:    "#8b5cf6",
			IconTag:     "AlertTriangle",
		},
	})
}

// List возвращает категории в порядке их объявления.
func (c *Catalog) List() []model.Category {
	res := make([]model.Category, len(c.ordered))
	copy(res, c.ordered)
	return res
}

// Get возвращает категорию по идентификатору.
func (c *Catalog) Get(id string) (model.Category, bool) {
	cat, ok := c.byID[id]
	return cat, ok
}
