package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// Category labels.
const (
	CategoryFood          = "อาหารและเครื่องดื่ม"
	CategoryTransport     = "การเดินทาง"
	CategoryEssentials    = "ของใช้จำเป็น"
	CategoryHealth        = "สุขภาพ"
	CategoryCredit        = "สินเชื่อ บัตรเครดิต"
	CategoryEntertainment = "บันเทิง"
	CategoryShopping      = "ช็อปปิ้ง"
	CategoryUtilities     = "สาธารณูปโภค"
	CategoryIncome        = "รายได้"
	CategoryOther         = "อื่นๆ"
)

// CategoryRule is one row of the taxonomy. Weight reflects how precise the
// keywords are: utility providers are unambiguous, "ซื้อ" is not.
type CategoryRule struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Weight   float64  `yaml:"weight" json:"weight"`
}

// DefaultTaxonomy is the built-in category table, in tie-break order.
var DefaultTaxonomy = []CategoryRule{
	{
		Name: CategoryFood,
		Keywords: []string{
			"กิน", "ทอด", "ย่าง", "ปิ้ง", "ข้าว", "น้ำ", "กาแฟ", "อร่อย", "ชา", "ขนม", "ส้มตำ",
			"ก๋วยเตี๋ยว", "บุฟเฟต์", "บุฟเฟ่ต์", "มื้อ", "อาหาร", "ค่าอาหาร", "GrabFood", "Lineman",
			"Foodpanda", "ShopeeFood", "เซเว่น", "คาเฟ่", "KFC", "McDonald", "Starbucks",
		},
		Weight: 1.2,
	},
	{
		Name: CategoryTransport,
		Keywords: []string{
			"รถ", "น้ำมัน", "วิน", "แท็กซี่", "BTS", "MRT", "เรือ", "ตั๋วเครื่องบิน", "ทางด่วน",
			"ที่จอดรถ", "GrabCar", "Bolt", "ล้างรถ", "ซ่อมรถ", "ปั๊ม", "เติมน้ำมัน", "PT", "TOYOTA",
			"Shell", "Bangchak", "PTT", "CALTEX", "Esso", "Susco",
		},
		Weight: 1.2,
	},
	{
		Name: CategoryEssentials,
		Keywords: []string{
			"ทิชชู่", "สบู่", "ยาสีฟัน", "ผงซักฟอก", "ของแห้ง", "ตลาด", "ซุปเปอร์", "ของใช้ส่วนตัว",
			"ผ้าอนามัย", "แชมพู", "โลตัส", "บิ๊กซี", "Lotus", "BigC", "Watson", "CJ", "7-Eleven",
			"CP FreshMart",
		},
		Weight: 1.0,
	},
	{
		Name: CategoryHealth,
		Keywords: []string{
			"ยา", "หมอ", "โรงพยาบาล", "คลินิก", "วิตามิน", "หมอฟัน", "หาหมอ", "ฟิตเนส", "แว่นตา",
			"ตรวจสุขภาพ", "Pharmacy", "Health", "Allianz", "AIA", "FWD", "Prudential", "LIFE",
			"ประกัน", "MSIG", "Insurance", "KGIB",
		},
		Weight: 1.5,
	},
	{
		Name: CategoryCredit,
		Keywords: []string{
			"บัตรเครดิต", "สินเชื่อ", "งวด", "ดอกเบี้ย", "จ่ายบัตร", "กรุงศรีเฟิร์สช้อยส์", "KTC", "กู้",
			"ผ่อนรถ", "ผ่อนบ้าน", "ส่งบ้าน", "ค่าบ้าน", "Credit Card", "Loan", "Leasing",
			"เฟิร์สช้อยส์", "First Choice", "Central The 1", "เซ็นทรัล เดอะวัน", "เดอะวัน", "Krungsri",
			"โอน:ธุรกิจ",
		},
		Weight: 1.4,
	},
	{
		Name: CategoryEntertainment,
		Keywords: []string{
			"ดูหนัง", "คอนเสิร์ต", "เกม", "เติมเกม", "ปาร์ตี้", "เหล้า", "เบียร์", "คาราโอเกะ",
			"Netflix", "Spotify", "Youtube Premium", "Cinema", "แพคเก็จ",
		},
		Weight: 1.1,
	},
	{
		Name: CategoryShopping,
		Keywords: []string{
			"ซื้อ", "เสื้อ", "กางเกง", "รองเท้า", "ของใช้", "ห้าง", "Lazada", "Shopee", "ลาซาด้า",
			"ช้อปปี้", "ชอปปี้", "ไดโซะ", "เครื่องสำอาง", "น้ำหอม", "Mall",
		},
		Weight: 1.0,
	},
	{
		Name:     CategoryUtilities,
		Keywords: []string{"การไฟฟ้า", "การประปา", "ค่าไฟ", "ค่าน้ำ", "MEA", "PEA", "MWA", "PWA"},
		Weight:   2.0,
	},
}

// Classifier assigns categories from a taxonomy table. It is immutable once
// built and safe for concurrent use.
type Classifier struct {
	rules []CategoryRule
	upper [][]string // keywords, upper-cased once
}

// NewClassifier builds a classifier over rules. The slice is copied.
func NewClassifier(rules []CategoryRule) *Classifier {
	c := &Classifier{
		rules: make([]CategoryRule, len(rules)),
		upper: make([][]string, len(rules)),
	}
	copy(c.rules, rules)
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, strings.ToUpper(kw))
			}
		}
		c.upper[i] = kws
	}
	return c
}

// DefaultClassifier returns a classifier over DefaultTaxonomy.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultTaxonomy)
}

// Rules returns a copy of the taxonomy the classifier was built with.
func (c *Classifier) Rules() []CategoryRule {
	out := make([]CategoryRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify picks a category for text. Income is always CategoryIncome. For
// expenses a learned preference for receiver wins outright; otherwise every
// rule scores keyword occurrences times its weight and the highest score
// wins, earlier rules winning ties.
func (c *Classifier) Classify(text string, dir models.Direction, receiver string, prefs models.Preferences) string {
	if dir == models.Income {
		return CategoryIncome
	}
	if cat, ok := prefs.Lookup(receiver); ok {
		return cat
	}

	upper := strings.ToUpper(text)
	best, bestScore := CategoryOther, 0.0
	for i, r := range c.rules {
		hits := 0
		for _, kw := range c.upper[i] {
			hits += strings.Count(upper, kw)
		}
		if score := float64(hits) * r.Weight; score > bestScore {
			best, bestScore = r.Name, score
		}
	}
	return best
}

// LearnPreference records that receiver should be filed under category and
// returns the new snapshot. Receivers of two characters or fewer are too
// ambiguous to learn from and leave prefs unchanged.
func LearnPreference(prefs models.Preferences, receiver, category string) models.Preferences {
	receiver = strings.TrimSpace(receiver)
	if runeLen(receiver) <= 2 || category == "" {
		return prefs
	}
	return prefs.With(receiver, category)
}

var errEmptyTaxonomy = errors.New("taxonomy has no categories")

type taxonomyFile struct {
	Categories []CategoryRule `yaml:"categories"`
}

// LoadTaxonomy reads a category table from YAML:
//
//	categories:
//	  - name: สาธารณูปโภค
//	    weight: 2.0
//	    keywords: [การไฟฟ้า, ค่าไฟ]
//
// A missing weight defaults to 1.
func LoadTaxonomy(r io.Reader) ([]CategoryRule, error) {
	var f taxonomyFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding taxonomy: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, errEmptyTaxonomy
	}
	for i := range f.Categories {
		rule := &f.Categories[i]
		rule.Name = strings.TrimSpace(rule.Name)
		if rule.Name == "" {
			return nil, fmt.Errorf("taxonomy entry %d: missing name", i+1)
		}
		if rule.Weight < 0 {
			return nil, fmt.Errorf("taxonomy entry %q: negative weight %v", rule.Name, rule.Weight)
		}
		if rule.Weight == 0 {
			rule.Weight = 1
		}
	}
	return f.Categories, nil
}

type preferencesFile struct {
	Preferences map[string]string `yaml:"preferences"`
}

// LoadPreferences reads a receiver-to-category map from YAML. Both a
// top-level "preferences:" key and a bare mapping are accepted.
func LoadPreferences(r io.Reader) (models.Preferences, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}

	var f preferencesFile
	if err := yaml.Unmarshal(data, &f); err == nil && f.Preferences != nil {
		return models.Preferences(f.Preferences), nil
	}

	direct := map[string]string{}
	if err := yaml.Unmarshal(data, &direct); err != nil {
		return nil, fmt.Errorf("decoding preferences: %w", err)
	}
	return models.Preferences(direct), nil
}

// SavePreferences writes prefs in the form LoadPreferences reads.
func SavePreferences(w io.Writer, prefs models.Preferences) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(preferencesFile{Preferences: prefs}); err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	return enc.Close()
}
