package model

import (
	"fmt"
	"strings"
	"time"
)

// CareerStage classifies where someone is in their working life.
type CareerStage string

const (
	CareerEarly     CareerStage = "early"
	CareerMid       CareerStage = "mid"
	CareerSenior    CareerStage = "senior"
	CareerExecutive CareerStage = "executive"
	CareerRetired   CareerStage = "retired"
)

// ValidCareerStages are the allowed career stages, in display order.
var ValidCareerStages = []CareerStage{CareerEarly, CareerMid, CareerSenior, CareerExecutive, CareerRetired}

// RiskTolerance is a coarse appetite for risk.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// TimeHorizon is the span someone plans over.
type TimeHorizon string

const (
	HorizonShort    TimeHorizon = "short"
	HorizonMedium   TimeHorizon = "medium"
	HorizonLong     TimeHorizon = "long"
	HorizonVeryLong TimeHorizon = "very_long"
)

// AdviceTone is how bluntly advice should be delivered.
type AdviceTone string

const (
	ToneBlunt    AdviceTone = "blunt"
	ToneBalanced AdviceTone = "balanced"
	ToneGentle   AdviceTone = "gentle"
)

var (
	validRisk     = map[RiskTolerance]bool{RiskLow: true, RiskMedium: true, RiskHigh: true}
	validHorizons = map[TimeHorizon]bool{HorizonShort: true, HorizonMedium: true, HorizonLong: true, HorizonVeryLong: true}
	validTones    = map[AdviceTone]bool{ToneBlunt: true, ToneBalanced: true, ToneGentle: true}
)

// Background is who the person is.
type Background struct {
	Age             *int        `json:"age,omitempty" yaml:"age,omitempty"`
	Gender          string      `json:"gender,omitempty" yaml:"gender,omitempty"`
	Nationality     string      `json:"nationality,omitempty" yaml:"nationality,omitempty"`
	CurrentLocation string      `json:"current_location,omitempty" yaml:"current_location,omitempty"`
	CareerStage     CareerStage `json:"career_stage,omitempty" yaml:"career_stage,omitempty"`
	Industry        string      `json:"industry,omitempty" yaml:"industry,omitempty"`
	Occupation      string      `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	EducationLevel  string      `json:"education_level,omitempty" yaml:"education_level,omitempty"`
	CulturalNotes   string      `json:"cultural_notes,omitempty" yaml:"cultural_notes,omitempty"`
}

// Constraints are the circumstances advice has to respect.
type Constraints struct {
	TimeHorizon          TimeHorizon   `json:"time_horizon" yaml:"time_horizon"`
	RiskTolerance        RiskTolerance `json:"risk_tolerance" yaml:"risk_tolerance"`
	HasDependents        *bool         `json:"has_dependents,omitempty" yaml:"has_dependents,omitempty"`
	FinancialObligations string        `json:"financial_obligations,omitempty" yaml:"financial_obligations,omitempty"`
	HealthConsiderations string        `json:"health_considerations,omitempty" yaml:"health_considerations,omitempty"`
	TimeAvailability     string        `json:"time_availability,omitempty" yaml:"time_availability,omitempty"`
}

// Preferences control how advice is delivered.
type Preferences struct {
	Tone              AdviceTone `json:"tone" yaml:"tone"`
	DepthLevel        string     `json:"depth_level" yaml:"depth_level"`
	PreferredExamples []string   `json:"preferred_examples" yaml:"preferred_examples"`
	Language          string     `json:"language" yaml:"language"`
}

// Profile is everything the advisor knows about its user.
type Profile struct {
	ID          string      `json:"id" yaml:"id,omitempty"`
	Name        string      `json:"name" yaml:"name"`
	Background  Background  `json:"background" yaml:"background"`
	Constraints Constraints `json:"constraints" yaml:"constraints"`
	Preferences Preferences `json:"preferences" yaml:"preferences"`
	Bio         string      `json:"bio,omitempty" yaml:"bio,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at" yaml:"updated_at,omitempty"`
}

// NewProfile returns a profile with default constraints and preferences.
func NewProfile(name string) Profile {
	p := Profile{Name: name}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills zero-valued enum and preference fields.
func (p *Profile) ApplyDefaults() {
	if p.Constraints.TimeHorizon == "" {
		p.Constraints.TimeHorizon = HorizonMedium
	}
	if p.Constraints.RiskTolerance == "" {
		p.Constraints.RiskTolerance = RiskMedium
	}
	if p.Preferences.Tone == "" {
		p.Preferences.Tone = ToneBalanced
	}
	if p.Preferences.DepthLevel == "" {
		p.Preferences.DepthLevel = "detailed"
	}
	if p.Preferences.PreferredExamples == nil {
		p.Preferences.PreferredExamples = []string{"business", "investing"}
	}
	if p.Preferences.Language == "" {
		p.Preferences.Language = "english"
	}
}

// Validate checks enum fields and ranges.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if a := p.Background.Age; a != nil && (*a < 0 || *a > 120) {
		return fmt.Errorf("age %d out of range 0-120", *a)
	}
	if s := p.Background.CareerStage; s != "" {
		ok := false
		for _, v := range ValidCareerStages {
			ok = ok || v == s
		}
		if !ok {
			return fmt.Errorf("unknown career stage %q", s)
		}
	}
	if !validHorizons[p.Constraints.TimeHorizon] {
		return fmt.Errorf("unknown time horizon %q", p.Constraints.TimeHorizon)
	}
	if !validRisk[p.Constraints.RiskTolerance] {
		return fmt.Errorf("unknown risk tolerance %q", p.Constraints.RiskTolerance)
	}
	if !validTones[p.Preferences.Tone] {
		return fmt.Errorf("unknown advice tone %q", p.Preferences.Tone)
	}
	return nil
}

// Summary renders the profile as a single line for prompt injection.
func (p Profile) Summary() string {
	parts := []string{"Name: " + p.Name}
	b, c := p.Background, p.Constraints

	if b.Age != nil && *b.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", *b.Age))
	}
	if b.CareerStage != "" {
		parts = append(parts, "Career stage: "+string(b.CareerStage))
	}
	if b.Industry != "" {
		parts = append(parts, "Industry: "+b.Industry)
	}
	if b.Occupation != "" {
		parts = append(parts, "Occupation: "+b.Occupation)
	}
	if c.TimeHorizon != "" {
		parts = append(parts, "Time horizon: "+string(c.TimeHorizon))
	}
	if c.RiskTolerance != "" {
		parts = append(parts, "Risk tolerance: "+string(c.RiskTolerance))
	}
	if c.HasDependents != nil {
		v := "No"
		if *c.HasDependents {
			v = "Yes"
		}
		parts = append(parts, "Has dependents: "+v)
	}
	if b.CulturalNotes != "" {
		parts = append(parts, "Cultural context: "+b.CulturalNotes)
	}
	if p.Bio != "" {
		parts = append(parts, "Bio: "+p.Bio)
	}
	return strings.Join(parts, "; ")
}
