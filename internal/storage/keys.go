package storage

// Persisted client-side keys. Each is mirrored between the cookie and the
// local store by the Adapter that owns it.
const (
	KeyFootprint       = "esbilla_footprint"
	KeyConsent         = "esbilla_consent"
	KeyLanguage        = "esbilla_lang"
	KeyTempAttribution = "esbilla_temp_attribution"
	KeyAttribution     = "esbilla_attribution"
)
