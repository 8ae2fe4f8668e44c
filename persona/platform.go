package persona

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Platform 是分身的目标发布平台，取值封闭。
type Platform string

const (
	LinkedIn    Platform = "LinkedIn"
	Twitter     Platform = "X (Twitter)"
	Xiaohongshu Platform = "小红书"
	Douyin      Platform = "抖音"
	Instagram   Platform = "Instagram"
	WeChat      Platform = "公众号"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{LinkedIn, Twitter, Xiaohongshu, Douyin, Instagram, WeChat}

var platformAliases = map[string]Platform{
	"linkedin":    LinkedIn,
	"x":           Twitter,
	"twitter":     Twitter,
	"x (twitter)": Twitter,
	"xiaohongshu": Xiaohongshu,
	"小红书":         Xiaohongshu,
	"douyin":      Douyin,
	"抖音":          Douyin,
	"instagram":   Instagram,
	"wechat":      WeChat,
	"公众号":         WeChat,
}

// ParsePlatform accepts the display label or an ASCII alias, case-insensitive.
func ParsePlatform(s string) (Platform, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if p, ok := platformAliases[key]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

func (p Platform) Valid() bool {
	_, err := ParsePlatform(string(p))
	return err == nil
}

func (p *Platform) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*p = ""
		return nil
	}
	parsed, err := ParsePlatform(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p *Platform) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParsePlatform(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = parsed
	return nil
}
