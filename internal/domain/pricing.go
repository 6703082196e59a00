package domain

// Category selects the prompt template and credit cost for an image job.
type Category string

const (
	CategoryClothing  Category = "clothing"
	CategoryFurniture Category = "furniture"
	CategoryAccessory Category = "accessory"
)

// CategorySpec is the immutable per-category configuration consulted by the
// orchestrator. Extending the category set means adding an entry here, not
// touching orchestration logic.
type CategorySpec struct {
	Cost           int
	PromptTemplate string
}

// VideoSpec is the fixed configuration for video generations.
type VideoSpec struct {
	Cost            int
	DurationSeconds int
	DefaultPrompt   string
	Resolution      string
	AspectRatio     string
}

// Pricing bundles all generation costs and prompt templates. Built once at
// startup and passed into the orchestrator; never mutated afterwards.
type Pricing struct {
	Categories map[Category]CategorySpec
	Video      VideoSpec
}

// DefaultPricing returns the built-in cost and prompt configuration.
func DefaultPricing() Pricing {
	return Pricing{
		Categories: map[Category]CategorySpec{
			CategoryClothing: {
				Cost:           1,
				PromptTemplate: "Wrap the clothing item in the first image with the material from the second image. Preserve the garment's cut, seams and drape; apply the material's texture, pattern and sheen photorealistically.",
			},
			CategoryFurniture: {
				Cost:           1,
				PromptTemplate: "Reupholster the furniture piece in the first image using the material from the second image. Keep the silhouette and proportions; render the new surface with realistic lighting and texture detail.",
			},
			CategoryAccessory: {
				Cost:           1,
				PromptTemplate: "Refinish the accessory in the first image with the material from the second image, keeping its shape and hardware while rendering the new surface faithfully.",
			},
		},
		Video: VideoSpec{
			Cost:            6,
			DurationSeconds: 5,
			DefaultPrompt:   "Slow cinematic turntable of the product, soft studio lighting, subtle fabric motion.",
			Resolution:      "720p",
			AspectRatio:     "16:9",
		},
	}
}

// Lookup returns the spec for a category.
func (p Pricing) Lookup(c Category) (CategorySpec, error) {
	spec, ok := p.Categories[c]
	if !ok {
		return CategorySpec{}, ErrUnknownCategory
	}
	return spec, nil
}
