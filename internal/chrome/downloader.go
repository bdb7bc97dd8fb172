package chrome

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"atomkit/internal/downloader"
	"atomkit/internal/telemetry"
	"atomkit/lib/fileio"
)

const (
	DefaultSnapshotURL   = "https://storage.googleapis.com/chromium-browser-snapshots"
	DefaultLastChangeURL = "https://storage.googleapis.com/download/storage/v1/b/chromium-browser-snapshots/o/%s%%2FLAST_CHANGE?alt=media"
)

const report_downloader_download = "downloader.download"

type DownloaderOptions struct {
	Dir     string
	Version string
	// SnapshotURL and LastChangeURL point to the chromium snapshot bucket
	// by default, LastChangeURL is a format string taking the platform.
	SnapshotURL   string
	LastChangeURL string
	UserAgent     string
	Proxy         string
	Telemetry     telemetry.API
}

// Downloader fetches chromium snapshot builds into Dir/<version>.
type Downloader struct {
	dir           string
	version       string
	snapshotURL   string
	lastChangeURL string
	files         *downloader.Downloader
	tel           telemetry.API
}

func NewDownloader(opts DownloaderOptions) (*Downloader, error) {
	if opts.SnapshotURL == "" {
		opts.SnapshotURL = DefaultSnapshotURL
	}
	if opts.LastChangeURL == "" {
		opts.LastChangeURL = DefaultLastChangeURL
	}
	err := fileio.DirCreate(opts.Dir)
	if err != nil {
		return nil, err
	}

	tel := telemetry.NewScopedAPI("chrome", opts.Telemetry)
	files, err := downloader.New(downloader.Options{
		UserAgent: opts.UserAgent,
		Proxy:     opts.Proxy,
		Telemetry: tel,
	})
	if err != nil {
		return nil, err
	}
	return &Downloader{
		dir:           opts.Dir,
		version:       opts.Version,
		snapshotURL:   strings.TrimSuffix(opts.SnapshotURL, "/"),
		lastChangeURL: opts.LastChangeURL,
		files:         files,
		tel:           tel,
	}, nil
}

// Platform returns the snapshot directory of the current platform, only
// linux builds are supported.
func Platform() (string, error) {
	if runtime.GOOS != "linux" {
		return "", fmt.Errorf("platform not supported yet: %s", runtime.GOOS)
	}
	if runtime.GOARCH == "amd64" {
		return "Linux_x64", nil
	}
	return "Linux", nil
}

func (d *Downloader) resolve(version string) string {
	if version == "" {
		return d.version
	}
	return version
}

// LatestVersion returns the revision of the newest snapshot.
func (d *Downloader) LatestVersion(ctx context.Context) (string, error) {
	platform, err := Platform()
	if err != nil {
		return "", err
	}
	data, err := d.files.DownloadBytes(ctx, fmt.Sprintf(d.lastChangeURL, platform))
	if err != nil {
		return "", fmt.Errorf("latest version: %w", err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" || strings.Trim(version, "0123456789") != "" {
		return "", fmt.Errorf("latest version: unexpected response '%s'", version)
	}
	return version, nil
}

func (d *Downloader) RemoteURL(version string) (string, error) {
	platform, err := Platform()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s/chrome-linux.zip", d.snapshotURL, platform, d.resolve(version)), nil
}

// Executable returns the path of the chrome binary of version.
func (d *Downloader) Executable(version string) string {
	return filepath.Join(d.dir, d.resolve(version), "chrome-linux", "chrome")
}

func (d *Downloader) Exist(version string) bool {
	info, err := os.Stat(d.Executable(version))
	return err == nil && info.Mode().IsRegular()
}

// Download fetches and extracts the snapshot of version and returns the
// path of its executable.
func (d *Downloader) Download(ctx context.Context, version string) (string, error) {
	version = d.resolve(version)
	if version == "" {
		return "", fmt.Errorf("download: no chrome version given")
	}
	url, err := d.RemoteURL(version)
	if err != nil {
		return "", err
	}

	data, err := d.files.DownloadBytes(ctx, url)
	if err != nil {
		d.tel.ReportBroken(report_downloader_download, err, version)
		return "", fmt.Errorf("download: %w", err)
	}
	_, err = downloader.Unzip(data, filepath.Join(d.dir, version))
	if err != nil {
		d.tel.ReportBroken(report_downloader_download, err, version)
		return "", fmt.Errorf("download: %w", err)
	}

	exe := d.Executable(version)
	err = os.Chmod(exe, 0755)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	return exe, nil
}

// Cleanup removes the files of version, every version when it is empty.
func (d *Downloader) Cleanup(version string) error {
	if version != "" {
		return fileio.DirClear(filepath.Join(d.dir, version), false)
	}
	return fileio.DirClear(d.dir, true)
}
