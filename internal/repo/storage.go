package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// normalizePath 标准化路径：
// 1. 去除首尾空白
// 2. 展开 ~ 为用户主目录
// 3. 转换为绝对路径
// 4. 清理路径（移除多余的分隔符和 . 或 ..）
func normalizePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("empty path")
	}

	// 展开 ~ 为用户主目录
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if p == "~" {
			p = home
		} else {
			p = filepath.Join(home, p[2:])
		}
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// IsWorkingCopy 检查路径是否指向有效的工作副本：路径存在、是目录、包含 .git。
func IsWorkingCopy(path string) bool {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// writeFile 把内容写入工作副本中的相对路径（使用 / 分隔），必要时创建父目录。
// created 表示文件此前不存在，回滚时需要删除。
func writeFile(root, rel string, content []byte) (created bool, err error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	if _, statErr := os.Stat(full); os.IsNotExist(statErr) {
		created = true
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return false, err
	}
	// 先写临时文件再 rename，避免留下半写的文件
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return false, err
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return false, err
	}
	return created, nil
}

// fileExists reports whether rel exists in the working copy.
func fileExists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

// removeFile 删除工作副本中的文件，文件不存在时静默返回。
func removeFile(root, rel string) error {
	err := os.Remove(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
