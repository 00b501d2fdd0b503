package gameconfig

import "math/rand"

// Archetype 角色原型
type Archetype struct {
	ID          string
	Name        string
	Description string
	Theme       string
	Stats       map[string]int
}

// SkillTree 技能树分支定义
type SkillTree struct {
	ID          string
	Name        string
	Description string
	MaxLevel    int
	Skills      []Skill
}

// Skill 技能树中的单个技能
type Skill struct {
	ID          string
	Name        string
	Description string
}

// MiniGame 小游戏定义
type MiniGame struct {
	ID         string
	Name       string
	DurationS  int
	XPReward   int
	Difficulty string
}

var archetypes = []Archetype{
	{
		ID: "warrior", Name: "The Warrior",
		Description: "Face challenges head-on with courage and determination",
		Theme:       "Strength through adversity",
		Stats:       map[string]int{"resilience": 5, "courage": 5, "determination": 4},
	},
	{
		ID: "healer", Name: "The Healer",
		Description: "Find peace through self-care and mindful practices",
		Theme:       "Growth through gentleness",
		Stats:       map[string]int{"selfCompassion": 5, "awareness": 5, "patience": 4},
	},
	{
		ID: "explorer", Name: "The Explorer",
		Description: "Discover new perspectives and embrace curiosity",
		Theme:       "Learning through discovery",
		Stats:       map[string]int{"curiosity": 5, "adaptability": 5, "openness": 4},
	},
	{
		ID: "guardian", Name: "The Guardian",
		Description: "Build stability through consistency and structure",
		Theme:       "Safety through routine",
		Stats:       map[string]int{"consistency": 5, "stability": 5, "protection": 4},
	},
}

var skillTrees = []SkillTree{
	{
		ID: "emotional", Name: "Emotional Awareness", MaxLevel: 20,
		Description: "Develop emotional intelligence and self-awareness",
		Skills: []Skill{
			{ID: "emotion_recognition", Name: "Emotion Recognition", Description: "Identify and name emotions"},
			{ID: "emotion_regulation", Name: "Emotion Regulation", Description: "Manage emotional responses"},
			{ID: "emotional_expression", Name: "Emotional Expression", Description: "Communicate feelings effectively"},
			{ID: "empathy", Name: "Empathy", Description: "Understand others' emotions"},
		},
	},
	{
		ID: "social", Name: "Social Connection", MaxLevel: 20,
		Description: "Build and maintain meaningful relationships",
		Skills: []Skill{
			{ID: "communication", Name: "Communication", Description: "Express yourself clearly"},
			{ID: "boundary_setting", Name: "Boundary Setting", Description: "Establish healthy limits"},
			{ID: "conflict_resolution", Name: "Conflict Resolution", Description: "Navigate disagreements"},
			{ID: "active_listening", Name: "Active Listening", Description: "Truly hear others"},
		},
	},
	{
		ID: "mindfulness", Name: "Mindful Practice", MaxLevel: 20,
		Description: "Cultivate present-moment awareness",
		Skills: []Skill{
			{ID: "breathing", Name: "Breathwork", Description: "Master breathing techniques"},
			{ID: "meditation", Name: "Meditation", Description: "Develop meditation practice"},
			{ID: "body_awareness", Name: "Body Awareness", Description: "Connect with physical sensations"},
			{ID: "present_focus", Name: "Present Focus", Description: "Stay grounded in now"},
		},
	},
	{
		ID: "physical", Name: "Physical Wellness", MaxLevel: 20,
		Description: "Support mental health through physical care",
		Skills: []Skill{
			{ID: "movement", Name: "Movement", Description: "Regular physical activity"},
			{ID: "sleep_hygiene", Name: "Sleep Hygiene", Description: "Improve sleep quality"},
			{ID: "nutrition", Name: "Nutrition", Description: "Nourish your body"},
			{ID: "energy_management", Name: "Energy Management", Description: "Balance rest and activity"},
		},
	},
}

var miniGames = []MiniGame{
	{ID: "breathing", Name: "Breathing Circle", DurationS: 300, XPReward: 75, Difficulty: "easy"},
	{ID: "moodmatcher", Name: "Mood Matcher", DurationS: 180, XPReward: 75, Difficulty: "medium"},
	{ID: "gratitude", Name: "Gratitude Garden", DurationS: 240, XPReward: 75, Difficulty: "easy"},
}

var levelUpMessages = []string{
	"Level Up! Your journey continues!",
	"New level achieved! Keep growing!",
	"You're making amazing progress!",
	"Level up! Your dedication shows!",
}

// Archetype 按 ID 查角色原型
func (t *Table) Archetype(id string) (Archetype, bool) {
	for _, a := range archetypes {
		if a.ID == id {
			return a, true
		}
	}
	return Archetype{}, false
}

// Archetypes 全部角色原型
func (t *Table) Archetypes() []Archetype {
	return append([]Archetype(nil), archetypes...)
}

// SkillTree 按分支 ID 查技能树
func (t *Table) SkillTree(id string) (SkillTree, bool) {
	for _, st := range skillTrees {
		if st.ID == id {
			return st, true
		}
	}
	return SkillTree{}, false
}

// HasSkill 技能是否属于该分支
func (st SkillTree) HasSkill(skillID string) bool {
	for _, s := range st.Skills {
		if s.ID == skillID {
			return true
		}
	}
	return false
}

// MiniGame 按 ID 查小游戏
func (t *Table) MiniGame(id string) (MiniGame, bool) {
	for _, g := range miniGames {
		if g.ID == id {
			return g, true
		}
	}
	return MiniGame{}, false
}

// LevelUpMessage 随机取一条升级提示
func (t *Table) LevelUpMessage() string {
	return levelUpMessages[rand.Intn(len(levelUpMessages))]
}
