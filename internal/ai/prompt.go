// README: Prompt templates for itinerary planning, optimization and travel tips.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"wayfarer/internal/itinerary"
)

const (
	plannerSystemPrompt   = "你是一位专业的旅行规划师，擅长根据用户需求制定详细、实用的旅行计划。"
	optimizerSystemPrompt = "你是一位专业的旅行规划师，擅长根据用户反馈调整已有的旅行计划。"

	// TipsMaxTokens caps the tips call; the answer is a short JSON array.
	TipsMaxTokens = 1000
)

var interestLabels = map[itinerary.Interest]string{
	itinerary.InterestFood:       "美食",
	itinerary.InterestCulture:    "文化",
	itinerary.InterestNature:     "自然风光",
	itinerary.InterestHistory:    "历史古迹",
	itinerary.InterestShopping:   "购物",
	itinerary.InterestNightlife:  "夜生活",
	itinerary.InterestAdventure:  "探险",
	itinerary.InterestRelaxation: "休闲放松",
	itinerary.InterestAnime:      "动漫",
	itinerary.InterestArt:        "艺术",
}

const itinerarySchema = `{
  "days": [
    {
      "date": "YYYY-MM-DD",
      "activities": [
        {
          "name": "活动名称",
          "description": "活动描述",
          "location": {"name": "地点名称", "address": "详细地址", "city": "城市", "country": "国家"},
          "duration": 120,
          "cost": 100,
          "category": "景点/娱乐/文化",
          "rating": 4.5
        }
      ],
      "meals": [
        {
          "name": "餐厅名称",
          "type": "breakfast/lunch/dinner/snack",
          "location": {"name": "餐厅名称", "address": "地址", "city": "城市", "country": "国家"},
          "cost": 50,
          "cuisine": "菜系",
          "rating": 4.0
        }
      ],
      "accommodation": {
        "name": "酒店名称",
        "type": "酒店/民宿/青旅",
        "location": {"name": "酒店名称", "address": "地址", "city": "城市", "country": "国家"},
        "cost_per_night": 300,
        "rating": 4.5,
        "amenities": ["WiFi", "早餐"]
      },
      "daily_cost": 500
    }
  ],
  "total_cost": 5000,
  "recommendations": ["提前预订热门景点门票", "购买当地交通卡"]
}`

// PlanningMessages renders a request into the [system, user] conversation.
// The output depends only on req.
func PlanningMessages(req itinerary.PlanningRequest) []Message {
	labels := make([]string, 0, len(req.Interests))
	for _, in := range req.Interests {
		if l, ok := interestLabels[in]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, string(in))
		}
	}
	interests := strings.Join(labels, "、")
	if interests == "" {
		interests = "无特别偏好"
	}

	var b strings.Builder
	b.WriteString("请根据以下信息为用户制定详细的旅行计划：\n\n")
	fmt.Fprintf(&b, "目的地：%s\n", strings.TrimSpace(req.Destination))
	fmt.Fprintf(&b, "旅行时长：%d天（%s 至 %s）\n", req.Days(), req.StartDate, req.EndDate)
	fmt.Fprintf(&b, "旅行预算：%s元人民币\n", formatAmount(req.Budget))
	fmt.Fprintf(&b, "同行人数：%d人\n", req.Participants)
	fmt.Fprintf(&b, "兴趣偏好：%s\n", interests)
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		fmt.Fprintf(&b, "详细需求：%s\n", notes)
	}
	b.WriteString("\n请只返回一个JSON对象，格式如下：\n\n")
	b.WriteString(itinerarySchema)
	fmt.Fprintf(&b, `

要求：
1. "days" 必须是一个数组，恰好包含 %d 天，日期从 %s 开始连续递增
2. 不要把天数拆分成多个 "days" 数组或多个JSON对象
3. 总费用不超过预算的120%%
4. 根据用户兴趣安排活动，并考虑地理位置合理安排路线
5. 所有价格以人民币计算，数值字段使用数字
6. 只返回JSON数据，不要包含其他说明文字`, req.Days(), req.StartDate)

	return []Message{
		{Role: RoleSystem, Content: plannerSystemPrompt},
		{Role: RoleUser, Content: b.String()},
	}
}

// OptimizeMessages asks for a revised itinerary given user feedback.
func OptimizeMessages(current *itinerary.Itinerary, feedback string) ([]Message, error) {
	encoded, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ai: encode current itinerary: %w", err)
	}
	prompt := fmt.Sprintf(`当前的旅行计划如下：
%s

用户反馈：%s

请根据用户反馈优化这份旅行计划，保持天数和JSON结构不变，只返回优化后的完整JSON对象。`, encoded, strings.TrimSpace(feedback))

	return []Message{
		{Role: RoleSystem, Content: optimizerSystemPrompt},
		{Role: RoleUser, Content: prompt},
	}, nil
}

func TipsMessages(destination string) []Message {
	prompt := fmt.Sprintf(`请为前往%s旅行的游客提供5-10条实用的旅行建议，可以涵盖：
- 最佳旅行时间
- 当地交通方式
- 必备物品
- 文化习俗注意事项
- 安全提示
- 美食推荐
- 购物建议

请以JSON数组格式返回：["建议1", "建议2", ...]`, strings.TrimSpace(destination))
	return []Message{{Role: RoleUser, Content: prompt}}
}

// ParseTips extracts the first bracketed JSON array of strings from raw and
// keeps at most ten entries. Anything unparseable yields an empty slice.
func ParseTips(raw string) []string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return []string{}
	}
	var tips itinerary.TextList
	if err := json.Unmarshal([]byte(raw[start:end+1]), &tips); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(tips))
	for _, t := range tips {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
		if len(out) == 10 {
			break
		}
	}
	return out
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
