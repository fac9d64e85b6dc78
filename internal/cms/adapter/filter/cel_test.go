package filter

import (
	"strings"
	"testing"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Rejects(t *testing.T) {
	for _, src := range []string{
		"subscriber.optInConfirmed &&",
		`"just a string"`,
		"unknown.field == 1",
		strings.Repeat("a", maxExpressionLength+1),
	} {
		_, err := Compile("subscriber", src)
		require.Error(t, err, src)
		assert.True(t, apperrors.IsValidation(err), src)
	}
}

func TestMatch_Subscribers(t *testing.T) {
	expr, err := Compile("subscriber", `subscriber.optInConfirmed && "blog" in subscriber.subscriptionSources`)
	require.NoError(t, err)

	confirmed := &model.EmailSubscriber{Email: "a@example.com", OptInConfirmed: true, SubscriptionSources: []string{"blog", "import"}}
	other := &model.EmailSubscriber{Email: "b@example.com", OptInConfirmed: true, SubscriptionSources: []string{"contact-form"}}
	unconfirmed := &model.EmailSubscriber{Email: "c@example.com", SubscriptionSources: []string{"blog"}}

	ok, err := expr.Match(confirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = expr.Match(other)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = expr.Match(unconfirmed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatch_StringFunctions(t *testing.T) {
	expr, err := Compile("subscriber", `subscriber.email.endsWith("@example.com") && subscriber.firstName != ""`)
	require.NoError(t, err)

	ok, err := expr.Match(map[string]interface{}{"email": "a@example.com", "firstName": "Ada"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = expr.Match(map[string]interface{}{"email": "a@example.com"})
	assert.Error(t, err)
}
