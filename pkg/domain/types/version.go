package types

// Version is overwritten at build time with -ldflags "-X".
var Version = "dev"

// ServiceName is used in health responses, comment footers and User-Agent headers.
const ServiceName = "breakwatch"
