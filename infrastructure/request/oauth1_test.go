package request

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "Ladies%20%2B%20Gentlemen", percentEncode("Ladies + Gentlemen"))
	assert.Equal(t, "An%20encoded%20string%21", percentEncode("An encoded string!"))
	assert.Equal(t, "Dogs%2C%20Cats%20%26%20Mice", percentEncode("Dogs, Cats & Mice"))
	assert.Equal(t, "~unreserved-chars_.", percentEncode("~unreserved-chars_."))
}

func TestSignOAuth1SetsAuthorizationHeader(t *testing.T) {
	req, err := http.NewRequest("POST", "https://api.twister.example/1.1/statuses/update.json?include_entities=true", nil)
	require.NoError(t, err)

	form := url.Values{}
	form.Set("status", "Hello Ladies + Gentlemen")

	err = SignOAuth1(req, OAuth1Credentials{
		ConsumerKey:    "xvz1evFS4wEEPTGEFPHBog",
		ConsumerSecret: "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		Token:          "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		TokenSecret:    "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
	}, form)
	require.NoError(t, err)

	auth := req.Header.Get("Authorization")
	assert.True(t, strings.HasPrefix(auth, "OAuth "))
	assert.Contains(t, auth, `oauth_consumer_key="xvz1evFS4wEEPTGEFPHBog"`)
	assert.Contains(t, auth, `oauth_signature_method="HMAC-SHA1"`)
	assert.Contains(t, auth, "oauth_signature=")
	assert.Contains(t, auth, `oauth_token="370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb"`)
}

func TestSignOAuth1IncludesCallbackAndVerifier(t *testing.T) {
	req, err := http.NewRequest("POST", "https://api.twister.example/oauth/request_token", nil)
	require.NoError(t, err)

	err = SignOAuth1(req, OAuth1Credentials{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		Callback:       "https://gateway.example/auth?service=twister",
	}, nil)
	require.NoError(t, err)

	auth := req.Header.Get("Authorization")
	assert.Contains(t, auth, "oauth_callback=")
	assert.NotContains(t, auth, "oauth_token=")
}
