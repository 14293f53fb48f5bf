package util

import (
	"os/exec"
	"runtime"
)

// browserCommand 各平台打开 URL 的默认命令
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		// rundll32 url.dll 在 Windows 7 到 11 上都可用
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

// fallbackCommands 默认命令失败后依次尝试的命令
func fallbackCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		return [][]string{{"explorer", url}}
	case "linux":
		browsers := []string{"google-chrome", "firefox", "chromium-browser", "sensible-browser"}
		cmds := make([][]string, 0, len(browsers))
		for _, b := range browsers {
			cmds = append(cmds, []string{b, url})
		}
		return cmds
	default:
		return nil
	}
}

// OpenBrowser 打开默认浏览器
func OpenBrowser(url string) error {
	name, args := browserCommand(runtime.GOOS, url)
	return exec.Command(name, args...).Start()
}

// OpenBrowserWithFallback 带降级方案的浏览器打开
func OpenBrowserWithFallback(url string) error {
	err := OpenBrowser(url)
	if err == nil {
		return nil
	}
	for _, c := range fallbackCommands(runtime.GOOS, url) {
		if exec.Command(c[0], c[1:]...).Start() == nil {
			return nil
		}
	}
	return err
}
