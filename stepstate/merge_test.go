package stepstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_PreservesExistingKeys(t *testing.T) {
	existing := map[string]any{
		"customerFile": map[string]any{"fileId": float64(1), "fileName": "list.csv"},
		"mailService":  map[string]any{"provider": "mailchimp", "connected": true},
	}
	incoming := map[string]any{
		"commonTemplate": map[string]any{"subject": "Hello"},
	}

	merged := Merge(existing, incoming)

	assert.Equal(t, existing["customerFile"], merged["customerFile"])
	assert.Equal(t, existing["mailService"], merged["mailService"])
	assert.Equal(t, incoming["commonTemplate"], merged["commonTemplate"])
}

func TestMerge_NestedObjectsMergeKeyByKey(t *testing.T) {
	existing := map[string]any{
		"mailService": map[string]any{"provider": "mailchimp", "connected": true},
	}
	incoming := map[string]any{
		"mailService": map[string]any{"provider": "hubspot"},
	}

	merged := Merge(existing, incoming)

	svc, ok := merged["mailService"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hubspot", svc["provider"])
	assert.Equal(t, true, svc["connected"], "keys absent from the patch survive")
}

func TestMerge_ArraysAndPrimitivesReplacedWholesale(t *testing.T) {
	existing := map[string]any{
		"generator": map[string]any{
			"personas": []any{"a", "b", "c"},
			"rounds":   float64(3),
		},
	}
	incoming := map[string]any{
		"generator": map[string]any{
			"personas": []any{"d"},
			"rounds":   float64(1),
		},
	}

	merged := Merge(existing, incoming)

	gen := merged["generator"].(map[string]any)
	assert.Equal(t, []any{"d"}, gen["personas"])
	assert.Equal(t, float64(1), gen["rounds"])
}

func TestMerge_ObjectReplacesPrimitiveAndViceVersa(t *testing.T) {
	existing := map[string]any{"launched": false}
	incoming := map[string]any{"launched": true}
	assert.Equal(t, true, Merge(existing, incoming)["launched"])

	existing = map[string]any{"summary": map[string]any{"totalRecipients": float64(5)}}
	incoming = map[string]any{"summary": "reset"}
	assert.Equal(t, "reset", Merge(existing, incoming)["summary"])
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := map[string]any{
		"mailService": map[string]any{"provider": "mailchimp"},
	}
	incoming := map[string]any{
		"mailService": map[string]any{"connected": true},
	}

	_ = Merge(existing, incoming)

	assert.Equal(t, map[string]any{"provider": "mailchimp"}, existing["mailService"])
	assert.Equal(t, map[string]any{"connected": true}, incoming["mailService"])
}

func TestApplyPatch_NilExistingTreatedAsEmpty(t *testing.T) {
	out, err := ApplyPatch(nil, map[string]any{
		"customerFile": map[string]any{"fileId": float64(7), "fileName": "f.csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fileId": float64(7), "fileName": "f.csv"}, out["customerFile"])
}

func TestApplyPatch_RejectsNonJSONSafeValues(t *testing.T) {
	_, err := ApplyPatch(map[string]any{}, map[string]any{
		"generator": map[string]any{"callback": struct{ X int }{X: 1}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotJSONSafe)
}

func TestApplyPatch_SanitizesTemplateHTML(t *testing.T) {
	out, err := ApplyPatch(map[string]any{}, map[string]any{
		"commonTemplate": map[string]any{
			"subject":   "Hi <b>there</b>",
			"preheader": "<i>peek</i> inside",
			"html":      `<p>Hello</p><script>alert("x")</script>`,
		},
	})
	require.NoError(t, err)

	tmpl := out["commonTemplate"].(map[string]any)
	assert.Equal(t, "Hi there", tmpl["subject"])
	assert.Equal(t, "peek inside", tmpl["preheader"])
	assert.Equal(t, "<p>Hello</p>", tmpl["html"])
}
