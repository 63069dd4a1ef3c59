package version

// Version is set at build time via -ldflags "-X github.com/ollama/kselect/version.Version=...".
var Version string = "0.0.0"
