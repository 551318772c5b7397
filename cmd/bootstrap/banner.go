package bootstrap

import (
	"fmt"
	"os"
	"strings"
)

// defaultBanner is the product wordmark in the figlet doom font.
const defaultBanner = ` _____  _   _  _      ______ _ __      __ _____  _  _____  ______
/  __ \| | | || |    |_   _|| |\ \    / /|  _  || |/  __ \|  ____|
| /  \/| | | || |      | |  | | \ \  / / | | | || || /  \/| |__
| |    | | | || |      | |  | |  \ \/ /  | | | || || |    |  __|
| \__/\| |_| || |___   | |  | |   \  /   | |_| || || \__/\| |____
 \____/ \___/ |_____|  \_/  |_|    \/    \_____/|_| \____/|______|
`

// bannerColors are cycled per line, magenta fading to white.
var bannerColors = []string{
	"\x1b[38;5;165m",
	"\x1b[38;5;189m",
	"\x1b[38;5;207m",
	"\x1b[38;5;219m",
	"\x1b[38;5;225m",
	"\x1b[38;5;231m",
}

// PrintBannerFromFile reads the banner file and prints it colorized,
// generating the file first when it does not exist.
func PrintBannerFromFile(filename, defaultText string) error {
	if err := EnsureBannerFile(filename, defaultText); err != nil {
		return fmt.Errorf("failed to ensure banner file: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		color := bannerColors[i%len(bannerColors)]
		fmt.Println(color + line + "\x1b[0m")
	}
	return nil
}

// EnsureBannerFile writes the banner file when none exists. The product
// name gets the prebuilt wordmark, any other text a plain frame.
func EnsureBannerFile(filename, text string) error {
	if _, err := os.Stat(filename); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	fmt.Printf("Banner file not found, generating %s...\n", filename)
	return os.WriteFile(filename, []byte(renderBanner(text)), 0644)
}

func renderBanner(text string) string {
	if text == "" || strings.EqualFold(text, "cultivoice") {
		return defaultBanner
	}
	frame := strings.Repeat("=", len(text)+8)
	return frame + "\n==  " + strings.ToUpper(text) + "  ==\n" + frame + "\n"
}
