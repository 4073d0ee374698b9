package model

import "fmt"

// Scope область организации/бота, которую вызывающая сторона передаёт в каждый вызов.
// Все чтения и записи фильтруются по ней.
type Scope struct {
	OrgID string `json:"org_id"`
	BotID string `json:"bot_id"`
}

func (s Scope) Validate() error {
	if s.OrgID == "" || s.BotID == "" {
		return fmt.Errorf("%w: org_id and bot_id are required", ErrValidation)
	}
	return nil
}

// Owns проверяет, принадлежит ли запись с данными org/bot этой области
func (s Scope) Owns(orgID, botID string) bool {
	return s.OrgID == orgID && s.BotID == botID
}

func (s Scope) String() string {
	return s.OrgID + "/" + s.BotID
}
