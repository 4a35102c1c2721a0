package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stroke-code-server/internal/domain"
	"github.com/stroke-code-server/internal/service"
)

// Tool names
const (
	ToolCalculateNihss       = "calculate_nihss"
	ToolCalculateAspects     = "calculate_aspects"
	ToolCalculateRtpaDose    = "calculate_rtpa_dose"
	ToolEvaluateThrombolysis = "evaluate_thrombolysis"
	ToolEvaluateThrombectomy = "evaluate_thrombectomy"
	ToolProtocolMilestones   = "protocol_milestones"
)

const (
	maxNihssTotal   = 42
	maxAspectsScore = 10
)

// NihssResult is the calculate_nihss output
type NihssResult struct {
	Total     int                    `json:"total"`
	Evaluated bool                   `json:"evaluated"`
	Subscores domain.NihssAssessment `json:"subscores"`
}

// AspectsResult is the calculate_aspects output
type AspectsResult struct {
	Score   int                      `json:"score"`
	Regions domain.AspectsAssessment `json:"regions"`
}

// DoseResult is the calculate_rtpa_dose output. RtpaDose is null when the
// weight is not a positive number.
type DoseResult struct {
	RtpaDose *domain.RtpaDose `json:"rtpaDose"`
}

// ThrombolysisParams is the evaluate_thrombolysis input
type ThrombolysisParams struct {
	Checklist  domain.Checklist `json:"checklist"`
	NihssTotal int              `json:"nihssTotal"`
}

// ThrombectomyParams is the evaluate_thrombectomy input
type ThrombectomyParams struct {
	Criteria     domain.ThrombectomyCriteria `json:"criteria"`
	NihssTotal   int                         `json:"nihssTotal"`
	AspectsScore int                         `json:"aspectsScore"`
}

// MilestonesParams is the protocol_milestones input
type MilestonesParams struct {
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

// MilestonesResult is the protocol_milestones output
type MilestonesResult struct {
	ElapsedSeconds int64              `json:"elapsedSeconds"`
	Formatted      string             `json:"formatted"`
	Milestones     []domain.Milestone `json:"milestones"`
}

func (s *Server) toolDefinitions() []*tool {
	return []*tool{
		{
			def: &mcp.Tool{
				Name:        ToolCalculateNihss,
				Description: "Compute the NIHSS total (0-42) from item subscores. Omitted items score 0.",
				InputSchema: nihssSchema(),
			},
			run: s.calculateNihss,
		},
		{
			def: &mcp.Tool{
				Name:        ToolCalculateAspects,
				Description: "Compute the ASPECTS score (0-10). Each region is true when it shows no early ischemic change; omitted regions are intact.",
				InputSchema: aspectsSchema(),
			},
			run: s.calculateAspects,
		},
		{
			def: &mcp.Tool{
				Name:        ToolCalculateRtpaDose,
				Description: "Compute the IV alteplase dose: 0.9 mg/kg capped at 90 mg, 10% bolus and 90% infusion.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"weight": {Type: "number", Description: "Patient weight in kilograms"},
				}, "weight"),
			},
			run: s.calculateRtpaDose,
		},
		{
			def: &mcp.Tool{
				Name:        ToolEvaluateThrombolysis,
				Description: "Evaluate IV thrombolysis eligibility from the inclusion/exclusion checklist and the NIHSS total.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"checklist":  checklistSchema(),
					"nihssTotal": integerSchema("NIHSS total", 0, maxNihssTotal),
				}, "checklist", "nihssTotal"),
			},
			run: s.evaluateThrombolysis,
		},
		{
			def: &mcp.Tool{
				Name:        ToolEvaluateThrombectomy,
				Description: "Evaluate mechanical thrombectomy eligibility from the criteria, NIHSS total and ASPECTS score.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"criteria":     criteriaSchema(),
					"nihssTotal":   integerSchema("NIHSS total", 0, maxNihssTotal),
					"aspectsScore": integerSchema("ASPECTS score", 0, maxAspectsScore),
				}, "criteria", "nihssTotal", "aspectsScore"),
			},
			run: s.evaluateThrombectomy,
		},
		{
			def: &mcp.Tool{
				Name:        ToolProtocolMilestones,
				Description: "Format an elapsed protocol time as MM:SS and report which door-to-treatment targets are still met.",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"elapsedSeconds": {Type: "integer", Minimum: jsonschema.Ptr(0.0), Description: "Seconds since the code was activated"},
				}, "elapsedSeconds"),
			},
			run: s.protocolMilestones,
		},
	}
}

func (s *Server) calculateNihss(_ context.Context, args json.RawMessage) (interface{}, error) {
	var nihss domain.NihssAssessment
	if err := json.Unmarshal(args, &nihss); err != nil {
		return nil, err
	}
	return NihssResult{
		Total:     service.NihssTotal(nihss),
		Evaluated: nihss.Evaluated(),
		Subscores: nihss,
	}, nil
}

func (s *Server) calculateAspects(_ context.Context, args json.RawMessage) (interface{}, error) {
	var aspects domain.AspectsAssessment
	if err := json.Unmarshal(args, &aspects); err != nil {
		return nil, err
	}
	return AspectsResult{
		Score:   service.AspectsScore(aspects),
		Regions: aspects,
	}, nil
}

func (s *Server) calculateRtpaDose(_ context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		Weight *float64 `json:"weight"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return DoseResult{RtpaDose: service.RtpaDose(params.Weight)}, nil
}

func (s *Server) evaluateThrombolysis(_ context.Context, args json.RawMessage) (interface{}, error) {
	var params ThrombolysisParams
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return s.engine.Thrombolysis(params.Checklist, params.NihssTotal), nil
}

func (s *Server) evaluateThrombectomy(_ context.Context, args json.RawMessage) (interface{}, error) {
	var params ThrombectomyParams
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := params.Criteria.Validate(); err != nil {
		return nil, err
	}
	return s.engine.Thrombectomy(params.Criteria, params.NihssTotal, params.AspectsScore), nil
}

func (s *Server) protocolMilestones(_ context.Context, args json.RawMessage) (interface{}, error) {
	var params MilestonesParams
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return MilestonesResult{
		ElapsedSeconds: params.ElapsedSeconds,
		Formatted:      service.FormatElapsed(params.ElapsedSeconds),
		Milestones:     service.Milestones(params.ElapsedSeconds),
	}, nil
}

// Schema builders

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           properties,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func integerSchema(description string, min, max int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: description,
		Minimum:     jsonschema.Ptr(float64(min)),
		Maximum:     jsonschema.Ptr(float64(max)),
	}
}

func booleanSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func nihssSchema() *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(domain.NihssItems))
	for _, item := range domain.NihssItems {
		properties[string(item.Key)] = integerSchema(fmt.Sprintf("%s %s", item.Code, item.Label), 0, item.MaxScore)
	}
	return objectSchema(properties)
}

func aspectsSchema() *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(domain.AspectsRegions))
	for _, region := range domain.AspectsRegions {
		properties[string(region.Key)] = booleanSchema(region.Label)
	}
	return objectSchema(properties)
}

func checklistSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"inclusionCriteria": objectSchema(map[string]*jsonschema.Schema{
			"timeWindow":        booleanSchema("Onset within the thrombolysis window"),
			"nihssOver5":        booleanSchema("NIHSS of 5 or more confirmed"),
			"disablingSymptoms": booleanSchema("Disabling symptoms despite a low NIHSS"),
		}),
		"exclusionCriteria": objectSchema(map[string]*jsonschema.Schema{
			"bleeding":        booleanSchema("Active or recent bleeding"),
			"hypertension":    booleanSchema("Uncontrolled hypertension"),
			"anticoagulation": booleanSchema("Therapeutic anticoagulation"),
			"giBleeding":      booleanSchema("Recent gastrointestinal bleeding"),
		}),
	})
}

func criteriaSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"timeWindow": {
			Type:        "string",
			Description: "Time since symptom onset; empty when not yet established",
			Enum: []any{
				string(domain.TimeWindowUnset),
				string(domain.TimeWindowEarly),
				string(domain.TimeWindowExtended),
				string(domain.TimeWindowLate),
			},
		},
		"largeVesselOcclusion": booleanSchema("Large vessel occlusion confirmed on angiography"),
		"premorbidMRS":         integerSchema("Premorbid modified Rankin Scale", 0, domain.MaxPremorbidMRS),
		"contraindications": objectSchema(map[string]*jsonschema.Schema{
			"lifeExpectancy":         booleanSchema("Life expectancy under 6 months"),
			"intracranialHemorrhage": booleanSchema("Intracranial hemorrhage"),
			"rapidImprovement":       booleanSchema("Rapid neurological improvement"),
		}),
	})
}
