package model

import "time"

// 配送先住所。注文時には orders 側へスナップショットとしてコピーされる。
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//宛名
	RecipientName string `gorm:"type:varchar(255);not null" json:"recipient_name"`

	//電話番号
	Phone string `gorm:"type:varchar(30)" json:"phone"`

	//番地など
	AddressLine string `gorm:"type:varchar(255);not null" json:"address_line"`

	//タンボン
	Subdistrict string `gorm:"type:varchar(100)" json:"subdistrict"`

	//郡
	District string `gorm:"type:varchar(100)" json:"district"`

	//県
	Province string `gorm:"type:varchar(100)" json:"province"`

	//郵便番号
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
