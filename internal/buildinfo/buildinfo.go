package buildinfo

import "fmt"

const Graffiti = " _____  ___________ \n/  ___||  _  |  _  \\\n\\ `--. | | | | | | |\n `--. \\| | | | | | |\n/\\__/ /\\ \\_/ / |/ / \n\\____/  \\___/|___/  \n\n"

// Set at link time with -ldflags "-X github.com/go-sod/sod/internal/buildinfo.BuildTag=..."
var (
	BuildTag string = "v0.0.0"
	Name     string = "sod"
	Time     string = ""
	Commit   string = "dev"
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

func (buildinfo) Commit() string {
	return Commit
}

func (b buildinfo) String() string {
	return fmt.Sprintf("%s: %s, %s (%s)", b.Name(), b.Time(), b.Tag(), b.Commit())
}

var Info buildinfo
