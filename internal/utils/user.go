package utils

import (
	"time"
)

// 等级阈值，按所需经验升序
var levelThresholds = []struct {
	minXP int
	name  string
}{
	{0, "Doodler"},
	{200, "Sketcher"},
	{600, "Illustrator"},
	{1500, "Artisan"},
	{3500, "Virtuoso"},
	{8000, "Master"},
}

// LevelForXP 根据经验值返回等级（从 1 开始）和称号
func LevelForXP(xp int) (level int, name string) {
	level, name = 1, levelThresholds[0].name
	for i, t := range levelThresholds {
		if xp >= t.minXP {
			level, name = i+1, t.name
		}
	}
	return level, name
}

// NextLevelXP 返回升到下一级所需的经验总量，已满级返回 0
func NextLevelXP(xp int) int {
	level, _ := LevelForXP(xp)
	if level >= len(levelThresholds) {
		return 0
	}
	return levelThresholds[level].minXP
}

// GetDaysSinceJoined 计算注册天数
func GetDaysSinceJoined(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt).Hours() / 24)
}
