package mapsurface

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var stylesYAML []byte

// MarkerStyle is the fixed visual style of a color class.
type MarkerStyle struct {
	Color  string `yaml:"color" json:"color"`
	Icon   string `yaml:"icon" json:"icon"`
	ZIndex int    `yaml:"zIndex" json:"zIndex"`
}

// StyleSheet maps color classes to styles.
type StyleSheet struct {
	Default MarkerStyle                `yaml:"default" json:"default"`
	Classes map[ColorClass]MarkerStyle `yaml:"classes" json:"classes"`
}

// ParseStyles reads a style sheet. A default color is required.
func ParseStyles(data []byte) (*StyleSheet, error) {
	var sheet StyleSheet
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("parse marker styles: %w", err)
	}
	if sheet.Default.Color == "" {
		return nil, fmt.Errorf("parse marker styles: default color is required")
	}
	if sheet.Classes == nil {
		sheet.Classes = map[ColorClass]MarkerStyle{}
	}
	return &sheet, nil
}

var defaultStyles = sync.OnceValue(func() *StyleSheet {
	sheet, err := ParseStyles(stylesYAML)
	if err != nil {
		panic(err)
	}
	return sheet
})

// DefaultStyles returns the embedded style sheet.
func DefaultStyles() *StyleSheet {
	return defaultStyles()
}

// For returns the style of class, or the default style for unknown classes.
func (s *StyleSheet) For(class ColorClass) MarkerStyle {
	if style, ok := s.Classes[class]; ok {
		return style
	}
	return s.Default
}

// Known reports whether class has its own style.
func (s *StyleSheet) Known(class ColorClass) bool {
	_, ok := s.Classes[class]
	return ok
}
