package session

import (
	"archive/tar"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// extractTarball unpacks a gzipped tar image (as cached under
// <cache-dir>/ognibuild/images/<suite>-<arch>.tar.gz, see §6 of the core
// spec) into a fresh temporary directory, returning its path.
func extractTarball(path string) (string, error) {
	root, err := ioutil.TempDir("", "ognibuild-unshare-")
	if err != nil {
		return "", errors.Wrap(err, "creating extraction root")
	}

	f, err := os.Open(path)
	if err != nil {
		os.RemoveAll(root)
		return "", errors.Wrapf(err, "opening base image %s", path)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		os.RemoveAll(root)
		return "", errors.Wrap(err, "opening gzip stream")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			os.RemoveAll(root)
			return "", errors.Wrap(err, "reading tar stream")
		}
		target := filepath.Join(root, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				os.RemoveAll(root)
				return "", err
			}
		case tar.TypeSymlink:
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				os.RemoveAll(root)
				return "", err
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				os.RemoveAll(root)
				return "", err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				os.RemoveAll(root)
				return "", err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				os.RemoveAll(root)
				return "", err
			}
			out.Close()
		}
	}
	return root, nil
}

func removeAllBestEffort(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}
