package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-validator/constants"
	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

func newValidator(t *testing.T, tolerance string, drift constants.Severity) *Validator {
	t.Helper()
	v, err := New(common.ValidateConfig{Tolerance: tolerance, DriftSeverity: drift})
	require.NoError(t, err)
	return v
}

func testTemplate() *entity.Template {
	return &entity.Template{
		VendorKey:     "acme_corp",
		VendorName:    "Acme Corp",
		SchemaVersion: 1,
		Fields: []entity.FieldDef{
			{Name: constants.FieldInvoiceNumber, Type: constants.FieldString, Required: true},
			{Name: constants.FieldIssueDate, Type: constants.FieldDate, Required: true},
			{Name: constants.FieldDueDate, Type: constants.FieldDate},
			{Name: constants.FieldSubtotal, Type: constants.FieldCurrency, Required: true},
			{Name: constants.FieldTax, Type: constants.FieldCurrency, Required: true},
			{Name: constants.FieldTotal, Type: constants.FieldCurrency, Required: true},
		},
		Rules: entity.ValidationRules{
			RequiredFields:   []string{"invoice_number", "date_of_issue", "subtotal", "tax", "total"},
			CheckTotals:      true,
			CheckLineMath:    true,
			CheckLineItemSum: true,
			Tolerance:        "0.01",
		},
	}
}

func cleanInvoice() entity.Invoice {
	return entity.Invoice{
		InvoiceNumber: "INV-1001",
		IssueDate:     "2025-09-01",
		DueDate:       "2025-09-30",
		Subtotal:      "349.33",
		Tax:           "12.58",
		Total:         "361.91",
		LineItems: []entity.LineItem{
			{Description: "Widgets", Quantity: "2", Rate: "100.00", LineTotal: "200.00"},
			{Description: "Gadgets", Quantity: "1", Rate: "149.33", LineTotal: "149.33"},
		},
	}
}

func kinds(issues []entity.Issue) []constants.IssueKind {
	out := make([]constants.IssueKind, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Kind)
	}
	return out
}

func TestValidateCleanInvoice(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)

	res := v.Validate(cleanInvoice(), testTemplate())

	assert.True(t, res.Valid)
	assert.Empty(t, res.Issues)
}

func TestCheckRequiredFields(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)

	inv := cleanInvoice()
	inv.InvoiceNumber = ""
	res := v.Validate(inv, testTemplate())

	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Issues)
	assert.Equal(t, constants.IssueMissingField, res.Issues[0].Kind)
	assert.Equal(t, "invoice_number", res.Issues[0].Field)
	assert.Equal(t, constants.SeverityError, res.Issues[0].Severity)
}

func TestCheckRequiredFieldsOutsideCoreSet(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)

	tpl := testTemplate()
	tpl.Fields = append(tpl.Fields, entity.FieldDef{
		Name: "amount_due", Type: constants.FieldCurrency, Required: true,
	})
	tpl.Rules.RequiredFields = append(tpl.Rules.RequiredFields, "amount_due")

	t.Run("absent vendor-specific field is reported missing", func(t *testing.T) {
		res := v.Validate(cleanInvoice(), tpl)

		assert.False(t, res.Valid)
		require.Len(t, res.Issues, 1)
		assert.Equal(t, constants.IssueMissingField, res.Issues[0].Kind)
		assert.Equal(t, "amount_due", res.Issues[0].Field)
	})

	t.Run("field carried in Extra satisfies the check", func(t *testing.T) {
		inv := cleanInvoice()
		inv.Extra = map[string]string{"amount_due": "361.91"}
		res := v.Validate(inv, tpl)

		assert.True(t, res.Valid)
		assert.Empty(t, res.Issues)
	})
}

func TestCheckDateFormats(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)
	tpl := testTemplate()

	t.Run("accepted layouts pass", func(t *testing.T) {
		for _, date := range []string{"2025-09-01", "09/01/2025", "9/1/2025", "Sep 1, 2025", "September 1, 2025", "1 Sep 2025"} {
			inv := cleanInvoice()
			inv.IssueDate = date
			inv.DueDate = ""
			res := v.Validate(inv, tpl)
			assert.True(t, res.Valid, "date %q", date)
		}
	})

	t.Run("garbage date flagged", func(t *testing.T) {
		inv := cleanInvoice()
		inv.IssueDate = "Septembruary 42"
		res := v.Validate(inv, tpl)

		assert.False(t, res.Valid)
		assert.Contains(t, kinds(res.Issues), constants.IssueBadDateFormat)
	})

	t.Run("missing due date raises nothing", func(t *testing.T) {
		inv := cleanInvoice()
		inv.DueDate = ""
		res := v.Validate(inv, tpl)
		assert.True(t, res.Valid)
	})
}

func TestCheckDateOrdering(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)
	tpl := testTemplate()

	t.Run("due before issue flagged", func(t *testing.T) {
		inv := cleanInvoice()
		inv.IssueDate = "2025-09-10"
		inv.DueDate = "2025-09-01"
		res := v.Validate(inv, tpl)

		assert.False(t, res.Valid)
		assert.Contains(t, kinds(res.Issues), constants.IssueDueBeforeIssue)
	})

	t.Run("same day is fine", func(t *testing.T) {
		inv := cleanInvoice()
		inv.IssueDate = "2025-09-10"
		inv.DueDate = "2025-09-10"
		res := v.Validate(inv, tpl)
		assert.True(t, res.Valid)
	})

	t.Run("unparseable date skips ordering, keeps format issue", func(t *testing.T) {
		inv := cleanInvoice()
		inv.DueDate = "whenever"
		res := v.Validate(inv, tpl)

		got := kinds(res.Issues)
		assert.Contains(t, got, constants.IssueBadDateFormat)
		assert.NotContains(t, got, constants.IssueDueBeforeIssue)
	})
}

func TestCheckLineMath(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)
	tpl := testTemplate()

	t.Run("exact product passes", func(t *testing.T) {
		inv := cleanInvoice()
		inv.LineItems = []entity.LineItem{{Description: "x", Quantity: "2", Rate: "10.00", LineTotal: "20.00"}}
		inv.Subtotal = "20.00"
		inv.Tax = "0"
		inv.Total = "20.00"
		res := v.Validate(inv, tpl)
		assert.True(t, res.Valid)
	})

	t.Run("wrong product flagged with expected and actual", func(t *testing.T) {
		inv := cleanInvoice()
		inv.LineItems = []entity.LineItem{{Description: "x", Quantity: "2", Rate: "10.00", LineTotal: "21.00"}}
		inv.Subtotal = "21.00"
		inv.Tax = "0"
		inv.Total = "21.00"
		res := v.Validate(inv, tpl)

		assert.False(t, res.Valid)
		require.Len(t, res.Issues, 1)
		is := res.Issues[0]
		assert.Equal(t, constants.IssueLineMathMismatch, is.Kind)
		assert.Equal(t, "line_items[0].line_total", is.Field)
		assert.Equal(t, "20.00", is.Expected)
		assert.Equal(t, "21.00", is.Actual)
	})
}

func TestCheckTotals(t *testing.T) {
	tpl := testTemplate()

	t.Run("within tolerance passes", func(t *testing.T) {
		v := newValidator(t, "0.01", constants.SeverityWarning)
		res := v.Validate(cleanInvoice(), tpl)
		assert.True(t, res.Valid)
	})

	t.Run("off by a cent fails at zero tolerance", func(t *testing.T) {
		v := newValidator(t, "0.01", constants.SeverityWarning)
		zeroTpl := testTemplate()
		zeroTpl.Rules.Tolerance = "0"

		inv := cleanInvoice()
		inv.Total = "361.90"
		// keep line items consistent with the stated subtotal
		res := v.Validate(inv, zeroTpl)

		assert.False(t, res.Valid)
		var found bool
		for _, is := range res.Issues {
			if is.Kind == constants.IssueTotalMismatch {
				found = true
				assert.Equal(t, "361.91", is.Expected)
				assert.Equal(t, "361.90", is.Actual)
			}
		}
		assert.True(t, found)
	})

	t.Run("template tolerance overrides validator default", func(t *testing.T) {
		v := newValidator(t, "0", constants.SeverityWarning)
		looseTpl := testTemplate()
		looseTpl.Rules.Tolerance = "0.05"

		inv := cleanInvoice()
		inv.Total = "361.90"
		res := v.Validate(inv, looseTpl)
		assert.True(t, res.Valid)
	})
}

func TestCheckLineItemSum(t *testing.T) {
	tpl := testTemplate()

	drifted := func() entity.Invoice {
		inv := cleanInvoice()
		// itemized rows sum to 349.33 but the vendor applied an
		// un-itemized discount
		inv.Subtotal = "340.00"
		inv.Tax = "12.58"
		inv.Total = "352.58"
		return inv
	}

	t.Run("drift is a warning by default", func(t *testing.T) {
		v := newValidator(t, "0.01", constants.SeverityWarning)
		res := v.Validate(drifted(), tpl)

		assert.True(t, res.Valid)
		require.Len(t, res.Issues, 1)
		is := res.Issues[0]
		assert.Equal(t, constants.IssueSubtotalDrift, is.Kind)
		assert.Equal(t, constants.SeverityWarning, is.Severity)
		assert.Equal(t, "349.33", is.Expected)
		assert.Equal(t, "340.00", is.Actual)
	})

	t.Run("drift severity is configurable", func(t *testing.T) {
		v := newValidator(t, "0.01", constants.SeverityError)
		res := v.Validate(drifted(), tpl)

		assert.False(t, res.Valid)
		require.Len(t, res.Issues, 1)
		assert.Equal(t, constants.SeverityError, res.Issues[0].Severity)
	})

	t.Run("no line items raises nothing", func(t *testing.T) {
		v := newValidator(t, "0.01", constants.SeverityWarning)
		inv := drifted()
		inv.LineItems = nil
		res := v.Validate(inv, tpl)
		assert.Empty(t, res.Issues)
	})
}

func TestValidateDeterministic(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)
	tpl := testTemplate()

	inv := cleanInvoice()
	inv.InvoiceNumber = ""
	inv.IssueDate = "garbage"
	inv.Total = "999.99"

	first := v.Validate(inv, tpl)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, v.Validate(inv, tpl))
	}
}

func TestValidateDoesNotMutateInputs(t *testing.T) {
	v := newValidator(t, "0.01", constants.SeverityWarning)
	tpl := testTemplate()
	inv := cleanInvoice()

	before := inv
	rulesBefore := tpl.Rules
	_ = v.Validate(inv, tpl)

	assert.Equal(t, before, inv)
	assert.Equal(t, rulesBefore, tpl.Rules)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(common.ValidateConfig{Tolerance: "abc"})
	assert.Error(t, err)

	_, err = New(common.ValidateConfig{Tolerance: "-0.01"})
	assert.Error(t, err)
}
