package app

// Project is one selectable dbt project as returned by GET /projects.
// Immutable once received; ID alone is the selection key, the
// (AccountID, ID) pair is only needed for display uniqueness.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	AccountID   int    `json:"account_id"`
	AccountName string `json:"account_name"`
}

// EnvironmentRef points at a dbt environment inside the selected project.
type EnvironmentRef struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	DeploymentType string `json:"deployment_type"`
}

type DecodedClaims struct {
	Sub int `json:"sub"`
}

type DecodedAccessToken struct {
	DecodedClaims DecodedClaims `json:"decoded_claims"`
}

// PlatformContext is the backend's saved view of the selected project.
// It is replaced wholesale on every successful fetch or selection,
// never merged field by field.
type PlatformContext struct {
	DevEnvironment     *EnvironmentRef    `json:"dev_environment"`
	ProdEnvironment    *EnvironmentRef    `json:"prod_environment"`
	DecodedAccessToken DecodedAccessToken `json:"decoded_access_token"`
}
