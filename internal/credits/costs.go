package credits

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operation is a category of paid action.
type Operation string

const (
	TextToImage       Operation = "TEXT_TO_IMAGE"
	ImageToImage      Operation = "IMAGE_TO_IMAGE"
	Upscale           Operation = "UPSCALE"
	BackgroundRemoval Operation = "BACKGROUND_REMOVAL"
	BatchProcess      Operation = "BATCH_PROCESS" // priced per item
	TextToVideo       Operation = "TEXT_TO_VIDEO"
	ImageToVideo      Operation = "IMAGE_TO_VIDEO"
	ImageEdit         Operation = "IMAGE_EDIT"
	PromptAssist      Operation = "PROMPT_ASSIST"
)

// Model is a backend model variant used to fulfill an operation.
type Model string

const (
	NoModel Model = ""
	Hailuo  Model = "HAILUO"
	Kling   Model = "KLING"
	Luma    Model = "LUMA"
	WanT2V  Model = "WAN_T2V"
	WanI2V  Model = "WAN_I2V"
	Qwen    Model = "QWEN"
)

// ParseModel normalizes a model name. Unknown names are kept so they can
// fall through to the operation's default price.
func ParseModel(s string) Model {
	return Model(strings.ToUpper(strings.TrimSpace(s)))
}

// Price is the pricing rule for one operation. Flat is charged when no model
// is given, Default when a model is given but has no entry in Models.
type Price struct {
	Flat    int64           `yaml:"flat" json:"flat,omitempty"`
	Default int64           `yaml:"default" json:"default,omitempty"`
	Models  map[Model]int64 `yaml:"models" json:"models,omitempty"`
}

// CostTable maps operations to their pricing rules.
type CostTable map[Operation]Price

// fallbackPrice is charged for operations missing from the table.
const fallbackPrice int64 = 1

// DefaultCostTable returns the built-in prices.
func DefaultCostTable() CostTable {
	return CostTable{
		TextToImage:       {Flat: 1},
		ImageToImage:      {Flat: 2},
		Upscale:           {Flat: 1},
		BackgroundRemoval: {Flat: 1},
		BatchProcess:      {Flat: 1},
		PromptAssist:      {Flat: 1},
		TextToVideo: {
			Default: 3,
			Models:  map[Model]int64{Hailuo: 3, Kling: 4, Luma: 2, WanT2V: 3},
		},
		ImageToVideo: {
			Default: 4,
			Models:  map[Model]int64{Hailuo: 4, Kling: 5, Luma: 3, WanI2V: 4},
		},
		ImageEdit: {
			Default: 2,
			Models:  map[Model]int64{Qwen: 2},
		},
	}
}

// Resolve returns the credit price of one unit of op run on model.
// It never fails and always returns a positive number.
func (t CostTable) Resolve(op Operation, model Model) int64 {
	price, ok := t[op]
	if !ok {
		return fallbackPrice
	}

	if model != NoModel {
		if cost, ok := price.Models[model]; ok && cost > 0 {
			return cost
		}
		if price.Default > 0 {
			return price.Default
		}
	}

	if price.Flat > 0 {
		return price.Flat
	}
	return fallbackPrice
}

// Clone returns a deep copy of the table.
func (t CostTable) Clone() CostTable {
	out := make(CostTable, len(t))
	for op, price := range t {
		cp := Price{Flat: price.Flat, Default: price.Default}
		if len(price.Models) > 0 {
			cp.Models = make(map[Model]int64, len(price.Models))
			for m, c := range price.Models {
				cp.Models[m] = c
			}
		}
		out[op] = cp
	}
	return out
}

// Merge returns a copy of t with the entries of overrides applied on top.
// Model prices are merged per model; zero fields in an override keep the
// existing value.
func (t CostTable) Merge(overrides CostTable) CostTable {
	out := t.Clone()
	for op, o := range overrides {
		cur := out[op]
		if o.Flat != 0 {
			cur.Flat = o.Flat
		}
		if o.Default != 0 {
			cur.Default = o.Default
		}
		if len(o.Models) > 0 && cur.Models == nil {
			cur.Models = make(map[Model]int64, len(o.Models))
		}
		for m, c := range o.Models {
			cur.Models[m] = c
		}
		out[op] = cur
	}
	return out
}

// Validate checks that every configured price is positive.
func (t CostTable) Validate() error {
	for op, price := range t {
		if price.Flat < 0 || price.Default < 0 {
			return fmt.Errorf("credits: %s has a negative price", op)
		}
		for m, c := range price.Models {
			if c <= 0 {
				return fmt.Errorf("credits: %s_%s must cost at least 1 credit", op, m)
			}
		}
	}
	return nil
}

// LoadCostTable reads a YAML override file and merges it over the defaults.
// An empty path returns the defaults.
func LoadCostTable(path string) (CostTable, error) {
	table := DefaultCostTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cost table: %w", err)
	}
	return ParseCostTable(data)
}

// ParseCostTable parses YAML overrides and merges them over the defaults.
func ParseCostTable(data []byte) (CostTable, error) {
	var raw map[string]struct {
		Flat    *int64           `yaml:"flat"`
		Default *int64           `yaml:"default"`
		Models  map[string]int64 `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse cost table: %w", err)
	}

	overrides := make(CostTable, len(raw))
	for name, entry := range raw {
		op := Operation(strings.ToUpper(strings.TrimSpace(name)))
		var price Price
		if entry.Flat != nil {
			if *entry.Flat <= 0 {
				return nil, fmt.Errorf("credits: %s flat price must be positive", op)
			}
			price.Flat = *entry.Flat
		}
		if entry.Default != nil {
			if *entry.Default <= 0 {
				return nil, fmt.Errorf("credits: %s default price must be positive", op)
			}
			price.Default = *entry.Default
		}
		if len(entry.Models) > 0 {
			price.Models = make(map[Model]int64, len(entry.Models))
			for m, c := range entry.Models {
				price.Models[ParseModel(m)] = c
			}
		}
		overrides[op] = price
	}

	table := DefaultCostTable().Merge(overrides)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
