package version

import (
	"bytes"
	"fmt"
	"runtime"
	"text/template"

	"github.com/spf13/cobra"
)

// Template field labels - centralized to follow no-magic-values rule
const (
	VersionLabel   = "Version:"
	CommitLabel    = "Git commit:"
	BuiltLabel     = "Built:"
	GoVersionLabel = "Go version:"
	OSArchLabel    = "OS/Arch:"
)

var versionTemplate = `
 ` + VersionLabel + `	{{.Version}}
 ` + CommitLabel + `	{{.GitCommit}}
 ` + BuiltLabel + `		{{.BuildTime}}
 ` + GoVersionLabel + `	{{.GoVersion}}
 ` + OSArchLabel + `	{{.Os}}/{{.Arch}}
`

type versionInfo struct {
	// build-time info
	Version   string
	GitCommit string
	BuildTime string
	// client machine info
	GoVersion string
	Os        string
	Arch      string
}

func (v *versionInfo) render() (string, error) {
	tmpl, err := template.New("version").Parse(versionTemplate)
	if err != nil {
		return "", fmt.Errorf("template parsing error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("template executing error: %w", err)
	}
	return buf.String(), nil
}

func NewVersionCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := &versionInfo{
				Version:   getVersion(),
				GitCommit: getCommit(),
				BuildTime: getBuildTimeDisplay(),
				GoVersion: runtime.Version(),
				Os:        runtime.GOOS,
				Arch:      runtime.GOARCH,
			}

			out, err := info.render()
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}

	return cmd
}
