package shopify

import "encoding/json"

// ---------------------------------------------------------------------------
// OAuth token exchange
// ---------------------------------------------------------------------------

type accessTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code,omitempty"`
	GrantType    string `json:"grant_type,omitempty"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	// ExpiresIn is present for expiring tokens only; zero means the
	// token does not expire
	ExpiresIn int64 `json:"expires_in"`
}

// ---------------------------------------------------------------------------
// GraphQL envelope
// ---------------------------------------------------------------------------

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// ---------------------------------------------------------------------------
// stagedUploadsCreate
// ---------------------------------------------------------------------------

const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters { name value }
    }
    userErrors { field message }
  }
}`

type stagedUploadParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type stagedTarget struct {
	URL         string                  `json:"url"`
	ResourceURL string                  `json:"resourceUrl"`
	Parameters  []stagedUploadParameter `json:"parameters"`
}

type stagedUploadsCreateData struct {
	StagedUploadsCreate struct {
		StagedTargets []stagedTarget `json:"stagedTargets"`
		UserErrors    []userError    `json:"userErrors"`
	} `json:"stagedUploadsCreate"`
}

// ---------------------------------------------------------------------------
// productCreate
// ---------------------------------------------------------------------------

const productCreateMutation = `
mutation productCreate($input: ProductInput!, $media: [CreateMediaInput!]) {
  productCreate(input: $input, media: $media) {
    product { id title }
    userErrors { field message }
  }
}`

type productCreateData struct {
	ProductCreate struct {
		Product *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"product"`
		UserErrors []userError `json:"userErrors"`
	} `json:"productCreate"`
}

// ---------------------------------------------------------------------------
// shop (connectivity check)
// ---------------------------------------------------------------------------

const shopQuery = `{ shop { name } }`

type shopQueryData struct {
	Shop struct {
		Name string `json:"name"`
	} `json:"shop"`
}
