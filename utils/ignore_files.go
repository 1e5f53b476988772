package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// IgnoreFileName holds extra exclusion patterns at the project root.
const IgnoreFileName = ".companionignore"

var skippedDirectories = map[string]bool{
	"node_modules": true,
	".git":         true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
	".cache":       true,
	"coverage":     true,
	".next":        true,
	".nuxt":        true,
	"__pycache__":  true,
	"vendor":       true,
	"target":       true,
}

var textExtensions = map[string]bool{
	"txt": true, "md": true, "js": true, "jsx": true, "ts": true, "tsx": true,
	"json": true, "html": true, "css": true, "scss": true, "less": true, "sass": true,
	"py": true, "rb": true, "java": true, "cpp": true, "c": true, "h": true, "hpp": true,
	"cs": true, "go": true, "rs": true, "php": true, "xml": true, "yml": true, "yaml": true,
	"toml": true, "sql": true, "sh": true, "bash": true, "zsh": true, "bat": true, "ps1": true,
	"vue": true, "svelte": true, "astro": true, "swift": true, "kt": true, "kts": true,
	"dart": true, "lua": true, "r": true, "scala": true, "groovy": true, "dockerfile": true,
	"makefile": true, "cmake": true, "env": true, "gitignore": true, "editorconfig": true,
	"mod": true, "example": true,
}

var extensionlessTextFiles = map[string]bool{
	"dockerfile": true,
	"makefile":   true,
	"gemfile":    true,
	"rakefile":   true,
	"procfile":   true,
}

var codeExtensions = map[string]bool{
	"js": true, "jsx": true, "ts": true, "tsx": true, "py": true, "rb": true,
	"java": true, "cpp": true, "c": true, "cs": true, "go": true, "rs": true,
	"php": true, "vue": true, "svelte": true,
}

var extensionLanguages = map[string]string{
	"js": "javascript", "jsx": "javascript", "ts": "typescript", "tsx": "typescript",
	"py": "python", "rb": "ruby", "java": "java", "cpp": "cpp", "c": "c", "h": "c",
	"hpp": "cpp", "cs": "csharp", "go": "go", "rs": "rust", "php": "php",
	"html": "html", "htm": "html", "css": "css", "scss": "scss", "less": "less",
	"sass": "sass", "json": "json", "xml": "xml", "md": "markdown", "sql": "sql",
	"sh": "bash", "bash": "bash", "zsh": "bash", "yml": "yaml", "yaml": "yaml",
	"toml": "toml", "vue": "markup", "svelte": "markup", "astro": "markup",
	"swift": "swift", "kt": "kotlin", "kts": "kotlin", "dart": "dart", "lua": "lua",
	"r": "r", "scala": "scala", "groovy": "groovy", "txt": "none", "log": "none",
	"env": "bash", "dockerfile": "docker", "makefile": "makefile", "mod": "none",
}

// NoLanguage tags files whose extension has no known language.
const NoLanguage = "none"

// IsSkippedDirectory reports whether a directory is never descended into:
// the fixed deny-list (case-insensitive) and every dot-directory.
func IsSkippedDirectory(name string) bool {
	return skippedDirectories[strings.ToLower(name)] || strings.HasPrefix(name, ".")
}

// GetFileExtension returns the lower-cased extension without the dot, or "".
func GetFileExtension(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

// IsTextFile reports whether a file name is on the text allow-list.
func IsTextFile(fileName string) bool {
	if textExtensions[GetFileExtension(fileName)] {
		return true
	}
	return extensionlessTextFiles[strings.ToLower(fileName)]
}

// IsCodeFile reports whether a file name has a source-code extension.
func IsCodeFile(fileName string) bool {
	return codeExtensions[GetFileExtension(fileName)]
}

// LanguageFromExtension maps an extension (no dot) to a language tag.
func LanguageFromExtension(ext string) string {
	if lang, ok := extensionLanguages[strings.ToLower(ext)]; ok {
		return lang
	}
	return NoLanguage
}

// LanguageFromFileName handles extensionless names like Dockerfile as well.
func LanguageFromFileName(fileName string) string {
	ext := GetFileExtension(fileName)
	if ext == "" {
		ext = strings.ToLower(fileName)
	}
	return LanguageFromExtension(ext)
}

// GetIgnorePatterns reads the project's ignore file from the root of fsys.
// A missing file yields no patterns.
func GetIgnorePatterns(fsys afero.Fs) ([]string, error) {
	content, err := afero.ReadFile(fsys, IgnoreFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// IsIgnored checks a slash-separated relative path against ignore patterns.
// Patterns ending in "/" exclude a directory prefix; others use path.Match
// against both the full path and the base name.
func IsIgnored(relativePath string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			if strings.HasPrefix(relativePath+"/", pattern) {
				return true
			}
			continue
		}
		if match, _ := path.Match(pattern, relativePath); match {
			return true
		}
		if match, _ := path.Match(pattern, path.Base(relativePath)); match {
			return true
		}
	}
	return false
}
