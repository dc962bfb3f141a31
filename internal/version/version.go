package version

// Version holds the application version. It is overridden at build time via:
//
//	-ldflags "-X github.com/opsden/trailkeeper/internal/version.Version=vX.Y.Z"
//
// Local builds without tags report "dev".
var Version = "dev"
