package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique placeholder names for skeleton
// bones and locators that come in nameless. Fixed seed so re-imports of
// the same file produce the same names.
type RandomNameGenerator struct {
	used map[string]struct{}
}

func (rng *RandomNameGenerator) RandomName() string {
	if rng.used == nil {
		rng.used = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		if _, taken := rng.used[name]; !taken {
			rng.used[name] = struct{}{}
			return name
		}
	}
}
