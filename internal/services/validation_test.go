package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reseau-affaires/apiserver/types"
)

func TestFieldPath(t *testing.T) {
	cases := map[string]string{
		"AccountInput.username":                      "username",
		"SignupRequest.user.password":                "user.password",
		"SignupRequest.ExpertInput.duree_experience": "duree_experience",
		"UserUpdate.UserPatch.email":                 "email",
		"tags":                                       "tags",
	}
	for namespace, want := range cases {
		assert.Equal(t, want, fieldPath(namespace), namespace)
	}
}

func TestPointerFieldsAcceptEmptyString(t *testing.T) {
	empty := ""
	assert.NoError(t, validateStruct(types.DocumentationPatch{Lien: &empty}))
	assert.NoError(t, validateStruct(UserUpdate{UserPatch: types.UserPatch{Email: &empty}}))

	bad := "pas une url"
	err := validateStruct(types.DocumentationPatch{Lien: &bad})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, map[string]string{"lien": "Enter a valid URL."}, validationErr.Fields)

	err = validateStruct(UserUpdate{UserPatch: types.UserPatch{Email: &bad}})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, map[string]string{"email": "Enter a valid email address."}, validationErr.Fields)

	link := "https://example.org/guide"
	assert.NoError(t, validateStruct(types.DocumentationPatch{Lien: &link}))
}

func TestValidationErrorPrefixed(t *testing.T) {
	err := newValidationError("username", msgUsernameTaken)

	nested := err.prefixed("user")

	assert.Equal(t, map[string]string{"user.username": msgUsernameTaken}, nested.Fields)
	assert.Equal(t, map[string]string{"username": msgUsernameTaken}, err.Fields)
	assert.Equal(t, "invalid input: user.username: "+msgUsernameTaken, nested.Error())
}

func TestNotifierNilSafe(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.AnnoncePubliee(context.Background(), types.Annonce{ID: 1})
	})
}
