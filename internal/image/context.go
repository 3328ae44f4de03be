package image

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
)

// contextArtifactDir is where the artifact set lives inside the build
// context.
const contextArtifactDir = "artifact"

// writeBuildContext writes a tar build context containing exactly the
// generated Dockerfile and the artifact set. The isolation guarantee of
// the runtime image rests on nothing else entering this archive.
func writeBuildContext(w io.Writer, dockerfile []byte, artifactDir string) error {
	tw := tar.NewWriter(w)

	if err := tw.WriteHeader(&tar.Header{
		Name: "Dockerfile",
		Mode: 0644,
		Size: int64(len(dockerfile)),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(dockerfile); err != nil {
		return err
	}

	err := filepath.Walk(artifactDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(artifactDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		name := filepath.ToSlash(filepath.Join(contextArtifactDir, rel))

		if info.IsDir() {
			return tw.WriteHeader(&tar.Header{
				Name:     name + "/",
				Mode:     int64(info.Mode().Perm()),
				Typeflag: tar.TypeDir,
			})
		}

		if err := tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: int64(info.Mode().Perm()),
			Size: info.Size(),
		}); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	return tw.Close()
}
