// Package genesis loads the initial parcel set the world is seeded with at
// bootstrap. Parcels are never created after bootstrap.
package genesis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Parcels []ParcelSpec `yaml:"parcels"`
}

type ParcelSpec struct {
	Name    string  `yaml:"name"`
	X       int     `yaml:"x"`
	Y       int     `yaml:"y"`
	Z       int     `yaml:"z"`
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Depth   int     `yaml:"depth"`
	Owner   string  `yaml:"owner"`
	Price   float64 `yaml:"price"`
	ForSale bool    `yaml:"for_sale"`
}

func Load(path string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("genesis.yaml: %w", err)
	}
	if len(c.Parcels) == 0 {
		return c, fmt.Errorf("genesis.yaml: no parcels defined")
	}
	for i, p := range c.Parcels {
		if p.Width <= 0 || p.Height <= 0 || p.Depth <= 0 {
			return c, fmt.Errorf("genesis.yaml: parcel %d (%q): non-positive bounds", i, p.Name)
		}
	}
	return c, nil
}

// Defaults is the built-in world: a public central plaza plus a row of ten
// parcels for sale at escalating prices.
func Defaults() Config {
	c := Config{
		Parcels: []ParcelSpec{{
			Name:   "Central Plaza",
			X:      -20,
			Y:      0,
			Z:      -20,
			Width:  40,
			Height: 20,
			Depth:  40,
		}},
	}
	for i := 0; i < 10; i++ {
		c.Parcels = append(c.Parcels, ParcelSpec{
			Name:    fmt.Sprintf("Parcel #%d", i+1),
			X:       -100 + i*20,
			Y:       0,
			Z:       30,
			Width:   15,
			Height:  30,
			Depth:   15,
			Price:   0.1 + float64(i)*0.05,
			ForSale: true,
		})
	}
	return c
}
