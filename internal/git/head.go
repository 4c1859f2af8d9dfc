package git

import (
	"strings"

	"github.com/go-git/go-git/v5"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// BuildVersionFromGit is the build_version value replaced by the HEAD commit.
const BuildVersionFromGit = "git"

// ShortHashLength is the number of hex digits of an abbreviated commit.
const ShortHashLength = 7

// Head returns the full HEAD commit hash of the repository containing path.
// Parent directories are searched for the repository root.
func Head(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryNotFound, "no git repository found").
			WithContext("path", path).
			Build()
	}
	ref, err := repo.Head()
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryNotFound, "failed to resolve HEAD").
			WithContext("path", path).
			Build()
	}
	return ref.Hash().String(), nil
}

// ShortHead returns the abbreviated HEAD commit of the repository containing path.
func ShortHead(path string) (string, error) {
	hash, err := Head(path)
	if err != nil {
		return "", err
	}
	if len(hash) > ShortHashLength {
		hash = hash[:ShortHashLength]
	}
	return hash, nil
}

// ResolveBuildVersion expands the special value "git" to the abbreviated
// HEAD commit of the repository containing root. Other values are returned
// unchanged.
func ResolveBuildVersion(root, version string) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(version), BuildVersionFromGit) {
		return version, nil
	}
	return ShortHead(root)
}
