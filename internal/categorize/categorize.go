// Package categorize assigns a topical category to a Burmese headline using
// ordered keyword rules.
package categorize

import (
	"strings"

	"mmnews/internal/model"
)

// Rule binds one category to the keywords that select it.
type Rule struct {
	Category model.Category
	Keywords []string
}

// Rules is evaluated in order; the first rule with any keyword present in the
// lowercased title wins, so ambiguous titles land in the earliest category.
var Rules = []Rule{
	{model.CategoryPoliticsConflict, []string{"စစ်", "တိုက်ပွဲ", "တပ်", "PDF", "NUG", "ရွေးကောက်ပွဲ", "ကာကွယ်ရေး", "ပစ်ခတ်", "တိုက်ခိုက်", "အရေးပေါ်", "ပြည်ထဲရေး", "လက်နက်"}},
	{model.CategoryEconomyBusiness, []string{"စီးပွားရေး", "ဈေးကွက်", "ငွေကြေး", "ဒေါ်လာ", "ရင်းနှီးမြှုပ်နှံ", "ကုမ္ပဏီ", "ရင်းနှီး", "ကုန်သွယ်", "တင်ပို့", "သွင်းကုန်", "ဘဏ်", "အလုပ်အကိုင်"}},
	{model.CategorySociety, []string{"လူမှု", "အလုပ်သမား", "အိမ်ရာ", "ရွှေ့ပြောင်း", "ဆန္ဒပြ", "အကူအညီ", "ဒုက္ခသည်", "အခွင့်အရေး"}},
	{model.CategoryHealth, []string{"ကျန်းမာရေး", "ရောဂါ", "ဆေးရုံ", "ကာကွယ်ဆေး", "COVID", "အန္တရာယ်", "သက်သာ", "လူနာ"}},
	{model.CategoryEducation, []string{"ပညာရေး", "ကျောင်း", "တက္ကသိုလ်", "စာမေးပွဲ", "ကျောင်းသား", "ဆရာ", "သင်ကြား"}},
	{model.CategoryEnvironment, []string{"ပတ်ဝန်းကျင်", "ရာသီဥတု", "မိုးလေဝသ", "ရေကြီး", "မီးလောင်", "သစ်တော", "မြေငလျင်", "တိရစ္ဆာန်"}},
	{model.CategoryInternational, []string{"နိုင်ငံတကာ", "အမေရိကန်", "တရုတ်", "ရုရှား", "အာဆီယံ", "UN", "ကုလသမဂ္ဂ", "ဥရောပ", "ဂျပန်", "ထိုင်း", "အိန္ဒိယ"}},
	{model.CategoryCrimeCourts, []string{"တရားရုံး", "အမှု", "ဖမ်းဆီး", "ထောင်", "ပြစ်မှု", "ရဲ", "စုံစမ်း", "တရားစီရင်"}},
	{model.CategoryTech, []string{"နည်းပညာ", "AI", "အင်တာနက်", "ဖုန်း", "ဆော့ဖ်ဝဲ", "ဟက်", "ဒေတာ", "ဆက်သွယ်ရေး"}},
	{model.CategoryCulture, []string{"ယဉ်ကျေးမှု", "ရုပ်ရှင်", "ဂီတ", "စာပေ", "အနုပညာ", "ပွဲတော်", "ဘာသာရေး"}},
}

// Title returns the category for a (post-rewrite) title. No rule matching
// means model.CategoryOther; there is no failure mode.
func Title(title string) model.Category {
	t := strings.ToLower(title)
	for _, rule := range Rules {
		for _, k := range rule.Keywords {
			if strings.Contains(t, strings.ToLower(k)) {
				return rule.Category
			}
		}
	}
	return model.CategoryOther
}
