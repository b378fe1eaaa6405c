package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
)

// DiskMedium is a driver.Medium rooted at a mount point on the host
// filesystem. Availability is probed per call by statting the root, so an
// unmounted card reads as gone without any cached state.
type DiskMedium struct {
	name string
	root string
}

func NewDiskMedium(name, root string) *DiskMedium {
	return &DiskMedium{name: name, root: root}
}

func (d *DiskMedium) Name() string { return d.name }

func (d *DiskMedium) Available() bool {
	info, err := os.Stat(d.root)
	return err == nil && info.IsDir()
}

func (d *DiskMedium) abs(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(p))
}

func (d *DiskMedium) MkdirAll(dir string) error {
	return os.MkdirAll(d.abs(dir), 0755)
}

func (d *DiskMedium) WriteFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(d.abs(p)), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	return os.WriteFile(d.abs(p), data, 0644)
}

func (d *DiskMedium) AppendFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(d.abs(p)), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	f, err := os.OpenFile(d.abs(p), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func (d *DiskMedium) ReadFile(p string) ([]byte, error) {
	return os.ReadFile(d.abs(p))
}

func (d *DiskMedium) Remove(p string) error {
	return os.Remove(d.abs(p))
}

func (d *DiskMedium) Exists(p string) bool {
	_, err := os.Stat(d.abs(p))
	return err == nil
}

func (d *DiskMedium) Size(p string) (int64, error) {
	info, err := os.Stat(d.abs(p))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (d *DiskMedium) List(dir string) ([]driver.FileInfo, error) {
	entries, err := os.ReadDir(d.abs(dir))
	if err != nil {
		return nil, err
	}

	infos := make([]driver.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, driver.FileInfo{
			Name:    entry.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return infos, nil
}

func (d *DiskMedium) Usage() (driver.UsageInfo, error) {
	stat, err := disk.Usage(d.root)
	if err != nil {
		return driver.UsageInfo{}, fmt.Errorf("failed to get disk stats for %s: %w", d.root, err)
	}
	return driver.UsageInfo{Total: stat.Total, Used: stat.Used}, nil
}
