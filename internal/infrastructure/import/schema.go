package csvimport

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/migration"
)

// FieldType is the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
	TypeDate    FieldType = "date"
	TypeBool    FieldType = "bool"
	TypeUUID    FieldType = "uuid"
	TypeEnum    FieldType = "enum"
)

// DefaultDateLayouts are tried in order for date fields. The dotted layout
// is what Turkish ERP exports use.
var DefaultDateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006", time.RFC3339}

// FieldRule describes one field of an entity schema.
type FieldRule struct {
	Column      string
	Type        FieldType
	Required    bool
	MinLength   int
	MaxLength   int
	Truncate    bool
	MinValue    *decimal.Decimal
	MaxValue    *decimal.Decimal
	EnumValues  []string
	DateLayouts []string
	Unique      bool
	CustomFunc  func(value any) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a string rule for column.
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int sets the field type to integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// Date sets the field type to date. Without layouts DefaultDateLayouts apply.
func (b *FieldRuleBuilder) Date(layouts ...string) *FieldRuleBuilder {
	b.rule.Type = TypeDate
	b.rule.DateLayouts = layouts
	return b
}

// Bool sets the field type to boolean
func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = TypeBool
	return b
}

// UUID sets the field type to UUID
func (b *FieldRuleBuilder) UUID() *FieldRuleBuilder {
	b.rule.Type = TypeUUID
	return b
}

// Enum restricts the field to values, matched case-insensitively.
func (b *FieldRuleBuilder) Enum(values ...string) *FieldRuleBuilder {
	b.rule.Type = TypeEnum
	b.rule.EnumValues = values
	return b
}

// MinLength sets the minimum length in runes
func (b *FieldRuleBuilder) MinLength(n int) *FieldRuleBuilder {
	b.rule.MinLength = n
	return b
}

// MaxLength sets the maximum length in runes
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Length sets min and max length
func (b *FieldRuleBuilder) Length(min, max int) *FieldRuleBuilder {
	b.rule.MinLength = min
	b.rule.MaxLength = max
	return b
}

// Truncate downgrades a MaxLength violation to a warning and cuts the value.
func (b *FieldRuleBuilder) Truncate() *FieldRuleBuilder {
	b.rule.Truncate = true
	return b
}

// MinValue sets the minimum numeric value
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// MaxValue sets the maximum numeric value
func (b *FieldRuleBuilder) MaxValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MaxValue = &v
	return b
}

// Range sets both min and max values
func (b *FieldRuleBuilder) Range(min, max decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &min
	b.rule.MaxValue = &max
	return b
}

// Unique requires the value to appear once per migration session.
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Custom adds a check that runs on the coerced value.
func (b *FieldRuleBuilder) Custom(fn func(value any) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// Schema is the ordered set of field rules for one entity type.
type Schema struct {
	EntityType migration.EntityType
	rules      []FieldRule
	columns    map[string]struct{}
}

// NewSchema builds a schema from rules.
func NewSchema(entityType migration.EntityType, rules ...*FieldRuleBuilder) *Schema {
	s := &Schema{
		EntityType: entityType,
		rules:      make([]FieldRule, len(rules)),
		columns:    make(map[string]struct{}, len(rules)),
	}
	for i, b := range rules {
		s.rules[i] = b.Build()
		s.columns[s.rules[i].Column] = struct{}{}
	}
	return s
}

// Rules returns the field rules in declaration order.
func (s *Schema) Rules() []FieldRule {
	return s.rules
}

// Outcome is the result of checking one record.
type Outcome struct {
	Data     map[string]any
	Errors   []migration.Issue
	Warnings []migration.Issue
}

// Check normalizes rec and validates it field by field. Data holds the
// coerced values of the known fields: ints as int64, decimals and dates as
// canonical strings. Unknown fields are dropped with a warning. When uniq
// is non-nil unique fields are claimed on it under owner.
func (s *Schema) Check(rec map[string]any, uniq *UniqueIndex, owner string) Outcome {
	rec = NormalizeRecord(rec)
	out := Outcome{Data: make(map[string]any, len(s.rules))}

	for _, rule := range s.rules {
		raw := Stringify(rec[rule.Column])
		if raw == "" {
			if rule.Required {
				out.Errors = append(out.Errors, issue(rule.Column, ErrCodeImportRequiredField,
					fmt.Sprintf("field '%s' is required", rule.Column), ""))
			}
			continue
		}

		value, bad := rule.coerce(raw)
		if bad != nil {
			out.Errors = append(out.Errors, *bad)
			continue
		}

		if str, ok := value.(string); ok && rule.Type == TypeString {
			n := utf8.RuneCountInString(str)
			if rule.MaxLength > 0 && n > rule.MaxLength {
				if !rule.Truncate {
					out.Errors = append(out.Errors, issue(rule.Column, ErrCodeImportInvalidLength,
						fmt.Sprintf("length must be at most %d", rule.MaxLength), raw))
					continue
				}
				value = string([]rune(str)[:rule.MaxLength])
				out.Warnings = append(out.Warnings, issue(rule.Column, WarnCodeImportTruncated,
					fmt.Sprintf("value truncated to %d characters", rule.MaxLength), raw))
			}
			if rule.MinLength > 0 && n < rule.MinLength {
				out.Errors = append(out.Errors, issue(rule.Column, ErrCodeImportInvalidLength,
					fmt.Sprintf("length must be at least %d", rule.MinLength), raw))
				continue
			}
		}

		if rule.Type == TypeInt || rule.Type == TypeDecimal {
			if msg := rule.checkRange(raw); msg != "" {
				out.Errors = append(out.Errors, issue(rule.Column, ErrCodeImportInvalidRange, msg, raw))
				continue
			}
		}

		if rule.CustomFunc != nil {
			if err := rule.CustomFunc(value); err != nil {
				out.Errors = append(out.Errors, issue(rule.Column, ErrCodeImportValidation, err.Error(), raw))
				continue
			}
		}

		if rule.Unique && uniq != nil {
			if first, ok := uniq.Claim(s.EntityType, rule.Column, fmt.Sprint(value), owner); !ok {
				out.Errors = append(out.Errors, issue(rule.Column, ErrCodeImportDuplicateInFile,
					fmt.Sprintf("duplicate value '%s' (first seen at %s)", raw, first), raw))
				continue
			}
		}

		out.Data[rule.Column] = value
	}

	for _, k := range slices.Sorted(maps.Keys(rec)) {
		if _, known := s.columns[k]; !known {
			out.Warnings = append(out.Warnings, issue(k, WarnCodeImportUnknownField,
				fmt.Sprintf("field '%s' is not part of the %s schema and was ignored", k, s.EntityType), ""))
		}
	}
	return out
}

func (r FieldRule) coerce(raw string) (any, *migration.Issue) {
	invalid := func(expected string) *migration.Issue {
		i := issue(r.Column, ErrCodeImportInvalidType, fmt.Sprintf("expected %s", expected), raw)
		return &i
	}

	switch r.Type {
	case TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalid("integer")
		}
		return n, nil
	case TypeDecimal:
		d, err := parseDecimal(raw)
		if err != nil {
			return nil, invalid("decimal")
		}
		return d.String(), nil
	case TypeDate:
		layouts := r.DateLayouts
		if len(layouts) == 0 {
			layouts = DefaultDateLayouts
		}
		for _, l := range layouts {
			if t, err := time.Parse(l, raw); err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
		i := issue(r.Column, ErrCodeImportInvalidFormat,
			fmt.Sprintf("invalid date, expected one of %s", strings.Join(layouts, ", ")), raw)
		return nil, &i
	case TypeBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes", "y", "evet":
			return true, nil
		case "false", "0", "no", "n", "hayir", "hayır":
			return false, nil
		}
		return nil, invalid("boolean")
	case TypeUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalid("UUID")
		}
		return id.String(), nil
	case TypeEnum:
		for _, v := range r.EnumValues {
			if strings.EqualFold(v, raw) {
				return v, nil
			}
		}
		i := issue(r.Column, ErrCodeImportInvalidEnum,
			fmt.Sprintf("must be one of %s", strings.Join(r.EnumValues, ", ")), raw)
		return nil, &i
	}
	return raw, nil
}

func (r FieldRule) checkRange(raw string) string {
	d, err := parseDecimal(raw)
	if err != nil {
		return ""
	}
	if r.MinValue != nil && d.LessThan(*r.MinValue) {
		return fmt.Sprintf("value must be at least %s", r.MinValue.String())
	}
	if r.MaxValue != nil && d.GreaterThan(*r.MaxValue) {
		return fmt.Sprintf("value must be at most %s", r.MaxValue.String())
	}
	return ""
}

// parseDecimal accepts a comma as the decimal separator when no dot is present.
func parseDecimal(raw string) (decimal.Decimal, error) {
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	return decimal.NewFromString(raw)
}

func issue(field, code, msg, value string) migration.Issue {
	return migration.Issue{Field: field, Code: code, Message: msg, Value: value}
}

// Stringify renders a decoded record value the way it appeared in the
// source file.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// UniqueIndex tracks unique field values across all chunks of a session.
// It is safe for concurrent use by parallel chunk validators.
type UniqueIndex struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewUniqueIndex creates an empty index
func NewUniqueIndex() *UniqueIndex {
	return &UniqueIndex{seen: make(map[string]string)}
}

// Claim records value for column under owner. It returns the first owner
// and false if the value was already claimed. Values compare
// case-insensitively.
func (u *UniqueIndex) Claim(entityType migration.EntityType, column, value, owner string) (string, bool) {
	key := string(entityType) + "\x00" + column + "\x00" + strings.ToLower(value)

	u.mu.Lock()
	defer u.mu.Unlock()
	if first, ok := u.seen[key]; ok {
		return first, false
	}
	u.seen[key] = owner
	return owner, true
}
