package model

/*
 * Copyright © 2018-2019 Around25 SRL <office@around25.com>
 *
 * Licensed under the Around25 Wallet License Agreement (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.around25.com/licenses/EXCHANGE_LICENSE
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * @author		Cosmin Harangus <cosmin@around25.com>
 * @copyright 2018-2019 Around25 SRL <office@around25.com>
 * @license 	EXCHANGE_LICENSE
 */

import (
	"time"
)

// Market structure. Owned by the game metadata service, the settlement batch only writes
// the bidding window, the clearable numbers and the last known result fields.
type Market struct {
	ID       string `gorm:"type:varchar(32);primary_key" json:"id"`
	Name     string `json:"name"`
	Category string `gorm:"column:category" json:"category"`

	// bidding window of the current day
	IsActive   bool   `gorm:"column:is_active" json:"is_active"`
	OpenTime   string `gorm:"column:open_time" json:"open_time"`
	CloseTime  string `gorm:"column:close_time" json:"close_time"`
	TimingDate string `gorm:"column:timing_date" json:"timing_date"`

	OpenNumber   *string `gorm:"column:open_number" json:"open_number"`
	CloseNumber  *string `gorm:"column:close_number" json:"close_number"`
	ResultNumber *string `gorm:"column:result_number" json:"result_number"`

	// "best guess" display numbers of the running cycle
	GuessOpen  *string `gorm:"column:guess_open" json:"guess_open"`
	GuessClose *string `gorm:"column:guess_close" json:"guess_close"`
	GuessDate  *string `gorm:"column:guess_date" json:"guess_date"`

	// web facing copy of the most recent result
	LastOpenNumber   *string `gorm:"column:last_open_number" json:"last_open_number"`
	LastCloseNumber  *string `gorm:"column:last_close_number" json:"last_close_number"`
	LastResultNumber *string `gorm:"column:last_result_number" json:"last_result_number"`
	LastResultDate   *string `gorm:"column:last_result_date" json:"last_result_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Market) TableName() string {
	return "markets"
}

// MarketTiming is the weekday template of a market bidding window
type MarketTiming struct {
	ID        uint64 `gorm:"primary_key" json:"id"`
	MarketID  string `gorm:"column:market_id;not null" json:"market_id"`
	Weekday   int    `gorm:"column:weekday;not null" json:"weekday"`
	OpenTime  string `gorm:"column:open_time" json:"open_time"`
	CloseTime string `gorm:"column:close_time" json:"close_time"`
	IsActive  bool   `gorm:"column:is_active" json:"is_active"`
}

func (MarketTiming) TableName() string {
	return "market_timings"
}

// MarketResult is one declared result of a market
type MarketResult struct {
	ID           uint64    `gorm:"primary_key" json:"id"`
	MarketID     string    `gorm:"column:market_id;not null" json:"market_id"`
	ResultDate   string    `gorm:"column:result_date;not null" json:"result_date"`
	OpenNumber   *string   `gorm:"column:open_number" json:"open_number"`
	CloseNumber  *string   `gorm:"column:close_number" json:"close_number"`
	ResultNumber *string   `gorm:"column:result_number" json:"result_number"`
	CreatedAt    time.Time `json:"created_at"`
}

func (MarketResult) TableName() string {
	return "market_results"
}
