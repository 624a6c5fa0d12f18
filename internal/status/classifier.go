package status

import "strings"

// Tier 风险等级
// 无法识别的上游状态会原样透传为 Tier，不会被吞成 Unknown。
type Tier string

const (
	TierSafe    Tier = "Safe"
	TierWarning Tier = "Warning"
	TierDanger  Tier = "Danger"
	TierUnknown Tier = "Unknown"
)

// 关键字按优先级匹配：Danger > Warning > Safe
var (
	dangerKeywords  = []string{"danger", "fire", "risk"}
	warningKeywords = []string{"warn"}
	safeKeywords    = []string{"safe", "ok", "normal"}
)

// Classify 将原始状态字符串归类为风险等级
// 空串（含纯空白）视为 null，返回 Unknown。
// 注意 "fire-safe building" 会被判为 Danger，上游词表受控，不做额外处理。
func Classify(raw string) Tier {
	n := strings.ToLower(strings.TrimSpace(raw))
	if n == "" {
		return TierUnknown
	}
	switch {
	case containsAny(n, dangerKeywords):
		return TierDanger
	case containsAny(n, warningKeywords):
		return TierWarning
	case containsAny(n, safeKeywords):
		return TierSafe
	}
	return Tier(raw)
}

// Known 是否为四个标准等级之一
func (t Tier) Known() bool {
	switch t {
	case TierSafe, TierWarning, TierDanger, TierUnknown:
		return true
	}
	return false
}

// Triggered 是否为需要关注的等级（Danger / Warning）
func (t Tier) Triggered() bool {
	return t == TierDanger || t == TierWarning
}

func (t Tier) String() string {
	return string(t)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// TierFromPPM 根据气体浓度推导等级（探测器未上报状态时使用）
func TierFromPPM(ppm float64) Tier {
	switch {
	case ppm > DangerPPM:
		return TierDanger
	case ppm > WarningPPM:
		return TierWarning
	default:
		return TierSafe
	}
}

// PPM 阈值
const (
	DangerPPM  = 2000
	WarningPPM = 1000
)
