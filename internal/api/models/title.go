package models

type Title struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"size:256;uniqueIndex:idx_titles_name;not null"`
	Year        int    `json:"year" gorm:"not null;check:chk_titles_year,year >= 0"`
	Description string `json:"description" gorm:"type:text"`
	CategoryID  *int64 `json:"category_id,omitempty" gorm:"index"`

	// association
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL;"`
	Genres   []Genre   `json:"genres,omitempty" gorm:"many2many:title_genres;joinForeignKey:TitleID;joinReferences:GenreID"`

	// Rating is computed by list/detail queries, never stored.
	Rating *float64 `json:"-" gorm:"->;-:migration"`
}

func (Title) TableName() string {
	return "titles"
}

// TitleGenre is the explicit join row; the composite primary key keeps
// (title, genre) links unique.
type TitleGenre struct {
	TitleID int64 `json:"title_id" gorm:"primaryKey;autoIncrement:false"`
	GenreID int64 `json:"genre_id" gorm:"primaryKey;autoIncrement:false"`

	Title Title `json:"-" gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE;"`
	Genre Genre `json:"-" gorm:"foreignKey:GenreID;constraint:OnDelete:CASCADE;"`
}

func (TitleGenre) TableName() string {
	return "title_genres"
}
