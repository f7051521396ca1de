// Package models contains data types and constants shared by the Nova client.
package models

// Backend endpoints, relative to the configured base URL
const (
	EndpointChat          = "/api/chat"
	EndpointUpload        = "/api/upload"
	EndpointHistory       = "/api/history"
	EndpointHistoryExport = "/api/history/export"
)

// APIPathMarker identifies requests routed with the network-first policy
const APIPathMarker = "/api/"

// Local storage keys
const (
	StorageKeyTheme   = "nova_theme"
	StorageKeyHistory = "nova_history"
)

// Themes accepted for nova_theme
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// DefaultCacheName is the version-tagged name of the offline cache.
// Bumping it invalidates every previously stored cache on activation.
const DefaultCacheName = "nova-v1"

// StaticAssets is the fixed list of documents pre-cached on install.
func StaticAssets() []string {
	return []string{
		"/",
		"/static/app.js",
		"/static/index.html",
		"/static/manifest.json",
		"/static/sw.js",
	}
}

// Texts rendered into the log when a send degrades
const (
	PlaceholderText   = "…thinking…"
	AttachmentPrefix  = "📎 "
	UploadErrorText   = "Upload error"
	NetworkErrorText  = "Network error"
	ServerErrorPrefix = "Error: "
)

// UploadFailedMessage is the error reported for any upload transport failure
const UploadFailedMessage = "upload failed"

// OfflineMessage is the error carried by synthesized offline API responses
const OfflineMessage = "offline"

// IsValidTheme reports whether name is a supported theme.
func IsValidTheme(name string) bool {
	return name == ThemeDark || name == ThemeLight
}

// ToggleTheme returns the opposite theme; unknown values flip to light.
func ToggleTheme(name string) string {
	if name == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}
