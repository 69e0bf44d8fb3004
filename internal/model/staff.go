package model

import "fmt"

// AnyProfessionalID は「指名なし」を表す予約済みのスタッフIDです
// サーバーから返ることはなく、クライアント側で合成されます
const AnyProfessionalID = 0

// Staff はスタッフ名簿の1件です
type Staff struct {
	ID          int    `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"display_name"`
	Active      bool   `json:"active" db:"active"`
}

// AnyProfessional は「指名なし」の選択肢を返します
func AnyProfessional() Staff {
	return Staff{
		ID:          AnyProfessionalID,
		DisplayName: "Any Professional",
		Active:      true,
	}
}

// StaffMode はスタッフの選択方法です
// StaffIDがAnyProfessionalIDの場合は指名なしを表します
type StaffMode struct {
	StaffID int `json:"staff_id"`
}

// AnyStaff は指名なしのStaffModeを返します
func AnyStaff() StaffMode {
	return StaffMode{StaffID: AnyProfessionalID}
}

// SpecificStaff は指名ありのStaffModeを返します
func SpecificStaff(staffID int) StaffMode {
	return StaffMode{StaffID: staffID}
}

// IsAny は指名なしかどうかを返します
func (m StaffMode) IsAny() bool {
	return m.StaffID == AnyProfessionalID
}

// QueryValue は空き状況APIのstaff_idパラメータ値を返します
func (m StaffMode) QueryValue() string {
	if m.IsAny() {
		return "any"
	}
	return fmt.Sprintf("%d", m.StaffID)
}

func (m StaffMode) String() string {
	if m.IsAny() {
		return "any"
	}
	return fmt.Sprintf("staff:%d", m.StaffID)
}
