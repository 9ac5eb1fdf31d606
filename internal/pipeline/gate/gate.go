// internal/pipeline/gate/gate.go
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"unicode/utf8"

	"smartbuilding-workers/internal/audit"
	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/common/metrics"
	"smartbuilding-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const maxTextLength = 500

// Rejection reasons, also used as audit event reasons.
const (
	ReasonInvalidKeys   = "invalid keys"
	ReasonMissingKeys   = "missing keys"
	ReasonPromptBlocked = "prompt blocked"
)

// envelopeSchema is the exact wire contract: unknown keys are rejected,
// {tenant, user, timestamp} are always required.
const envelopeSchema = `{
	"type": "object",
	"properties": {
		"tenantId":  {"type": "string"},
		"userId":    {"type": "string"},
		"nodeId":    {"type": "string"},
		"audioRef":  {"type": "string"},
		"text":      {"type": "string"},
		"timestamp": {"type": "string"},
		"recordId":  {"type": "string"},
		"kind":      {"type": "string", "enum": ["audio", "text"]},
		"retries":   {"type": "integer"}
	},
	"required": ["tenantId", "userId", "timestamp"],
	"additionalProperties": false
}`

// dangerPattern is one class of blocked input. Evaluation order is fixed
// so the reported rule class is deterministic.
type dangerPattern struct {
	class string
	re    *regexp.Regexp
}

var dangerPatterns = []dangerPattern{
	{"prompt_injection", regexp.MustCompile(`(?i)\b(ignore|disregard|forget|ignora|dimentica)\b.{0,40}\b(instructions?|prompts?|rules?|istruzioni|regole)\b`)},
	{"prompt_injection", regexp.MustCompile(`(?i)\b(drop|delete|truncate)\s+(all\s+)?(users?|tables?|records?|database)\b`)},
	{"template_injection", regexp.MustCompile(`\{\{|\}\}`)},
	{"script_markup", regexp.MustCompile(`(?i)<\s*/?\s*(script|style|iframe|img|svg|object|embed|link|meta)\b`)},
	{"process_execution", regexp.MustCompile(`(?i)(os\.system|subprocess\.|popen\s*\(|exec\s*\(|eval\s*\(|system\s*\()`)},
	{"shell_expansion", regexp.MustCompile(`\$\{[^}]*\}|\$\([^)]*\)|\$[A-Za-z_][A-Za-z0-9_]*`)},
	{"sql_sequence", regexp.MustCompile(`;|--|/\*|\*/`)},
	{"markup_tag", regexp.MustCompile(`<[^>]*>`)},
}

// Rejection describes why an envelope was dropped. A nil Rejection means
// the envelope is safe to process.
type Rejection struct {
	Reason    string
	RuleClass string
}

// Gate validates and sanitizes raw envelope-shaped messages. It never
// returns an error: it only decides accept or reject, and emits an audit
// event for every rejection.
type Gate struct {
	schema *gojsonschema.Schema
	sink   audit.Sink
	logger logger.Logger
}

func New(sink audit.Sink, log logger.Logger) (*Gate, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	return &Gate{
		schema: schema,
		sink:   sink,
		logger: log.With(map[string]interface{}{"component": "security-gate"}),
	}, nil
}

// Check runs the ordered checks: key set, required keys, text sanitization.
func (g *Gate) Check(ctx context.Context, raw map[string]interface{}) (*models.CommandEnvelope, *Rejection) {
	result, err := g.schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		// The raw map could not even be loaded as a JSON document.
		return nil, g.reject(ctx, raw, ReasonInvalidKeys, "unloadable")
	}

	if !result.Valid() {
		hasExtra, hasMissing := false, false
		var firstClass string
		for _, resErr := range result.Errors() {
			switch resErr.Type() {
			case "additional_property_not_allowed":
				hasExtra = true
			case "required":
				hasMissing = true
			default:
				if firstClass == "" {
					firstClass = resErr.Type()
				}
			}
		}
		// Key-set check precedes the required-key check.
		if hasExtra {
			return nil, g.reject(ctx, raw, ReasonInvalidKeys, "additional_property")
		}
		if hasMissing {
			return nil, g.reject(ctx, raw, ReasonMissingKeys, "required_property")
		}
		return nil, g.reject(ctx, raw, ReasonInvalidKeys, firstClass)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, g.reject(ctx, raw, ReasonInvalidKeys, "decode")
	}

	if env.Text != "" {
		if class, ok := sanitizeText(env.Text); !ok {
			return nil, g.reject(ctx, raw, ReasonPromptBlocked, class)
		}
	}

	return env, nil
}

// sanitizeText returns the violated rule class, or ok=true when the text
// is plain natural language within the length limit. The limit counts
// characters, not bytes: accented Italian letters are multi-byte.
func sanitizeText(text string) (string, bool) {
	if utf8.RuneCountInString(text) > maxTextLength {
		return "max_length", false
	}
	for _, p := range dangerPatterns {
		if p.re.MatchString(text) {
			return p.class, false
		}
	}
	return "", true
}

func decodeEnvelope(raw map[string]interface{}) (*models.CommandEnvelope, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var env models.CommandEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (g *Gate) reject(ctx context.Context, raw map[string]interface{}, reason, ruleClass string) *Rejection {
	tenantID, _ := raw["tenantId"].(string)
	userID, _ := raw["userId"].(string)

	g.logger.Warn(reason, map[string]interface{}{
		"tenantId":  tenantID,
		"userId":    userID,
		"ruleClass": ruleClass,
	})
	metrics.SecurityRejections.WithLabelValues(ruleClass).Inc()

	g.sink.Emit(ctx, audit.NewEvent(
		audit.KindSecurityRejection,
		"rejected",
		tenantID,
		userID,
		reason,
		map[string]interface{}{"ruleClass": ruleClass},
	))

	return &Rejection{Reason: reason, RuleClass: ruleClass}
}
