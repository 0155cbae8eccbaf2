package mysql

import (
	"context"
	"errors"
	"fmt"

	sqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/usecase"
	"github.com/JoeShih716/go-ledger-service/pkg/mysql"
)

// MySQL error codes
const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrLockWait       = 1205
	mysqlErrDeadlock       = 1213
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	// 釘死 utf8mb4_bin，username 比對與唯一索引才會區分大小寫
	Username  string `gorm:"uniqueIndex;type:varchar(64) COLLATE utf8mb4_bin"`
	Balance   int64  `gorm:"column:balance_cents"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlChange 對應資料庫的 changes 表，記錄已提交的原子更新 (冪等用)
type sqlChange struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RefID     []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

func (*sqlChange) TableName() string {
	return "changes"
}

// Store 是 MySQL 實現的帳戶儲存 (Level 0)
type Store struct {
	client *mysql.Client
}

func NewStore(client *mysql.Client) *Store {
	return &Store{
		client: client,
	}
}

// Migrate 建立/更新資料表結構
func (s *Store) Migrate() error {
	return s.client.DB().AutoMigrate(&sqlAccount{}, &sqlChange{})
}

// FindByID 以帳戶 ID 查詢
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).Where("id = ?", id.String()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeFault(err)
	}
	return toDomain(&row)
}

// FindByUsername 以帳戶名稱查詢 (utf8mb4_bin，區分大小寫)
func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).Where("username = ?", username).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeFault(err)
	}
	return toDomain(&row)
}

// CreateAccount 建立帳戶
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	row := sqlAccount{
		ID:       account.ID.String(),
		Username: account.Username,
		Balance:  int64(account.Balance),
	}
	if err := s.client.DB().WithContext(ctx).Create(&row).Error; err != nil {
		var myErr *sqldriver.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
			return domain.ErrAccountAlreadyExists
		}
		return storeFault(err)
	}
	return nil
}

// LoadAllAccounts 載入所有帳戶快照
func (s *Store) LoadAllAccounts(ctx context.Context) (map[uuid.UUID]*domain.Account, error) {
	var rows []sqlAccount
	if err := s.client.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, storeFault(err)
	}
	accounts := make(map[uuid.UUID]*domain.Account, len(rows))
	for i := range rows {
		acc, err := toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		accounts[acc.ID] = acc
	}
	return accounts, nil
}

// AtomicUpdate 處理原子更新 (悲觀鎖)
//
// 以 SELECT ... FOR UPDATE 鎖定指定帳戶 (呼叫端已依 ID 排序，避免死鎖)，
// fn 操作查出的副本，成功才寫回並記錄 changeID；
// 任何錯誤都讓整個 Transaction 回滾
func (s *Store) AtomicUpdate(ctx context.Context, changeID uuid.UUID, ids []uuid.UUID, fn func(accounts map[uuid.UUID]*domain.Account) error) error {
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先檢查是否已提交過這筆異動
		var change sqlChange
		err := tx.Where("ref_id = ?", changeID[:]).First(&change).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 鎖定帳戶 (悲觀鎖)，依呼叫端給的固定順序
		idStrings := make([]string, 0, len(ids))
		for _, id := range ids {
			idStrings = append(idStrings, id.String())
		}
		var rows []sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", idStrings).
			Order("id").
			Find(&rows).Error; err != nil {
			return err
		}

		copies := make(map[uuid.UUID]*domain.Account, len(rows))
		for i := range rows {
			acc, err := toDomain(&rows[i])
			if err != nil {
				return err
			}
			copies[acc.ID] = acc
		}

		if err := fn(copies); err != nil {
			return err
		}

		// 寫回異動後的餘額
		for i := range rows {
			id, _ := uuid.Parse(rows[i].ID)
			rows[i].Balance = int64(copies[id].Balance)
			if err := tx.Save(&rows[i]).Error; err != nil {
				return err
			}
		}

		return tx.Create(&sqlChange{RefID: changeID[:]}).Error
	})
	return classify(err)
}

// toDomain 轉換資料列為 Domain Account
func toDomain(row *sqlAccount) (*domain.Account, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt account id %q", domain.ErrStoreUnavailable, row.ID)
	}
	return domain.NewAccount(id, row.Username, domain.Amount(row.Balance)), nil
}

// classify 把基礎設施錯誤歸類；業務錯誤原樣帶回
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		domain.ErrSenderNotFound,
		domain.ErrRecipientNotFound,
		domain.ErrInsufficientFunds,
		domain.ErrInvalidAmount,
		domain.ErrAccountNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	var myErr *sqldriver.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWait) {
		return domain.ErrUpdateConflict
	}
	return storeFault(err)
}

func storeFault(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

var _ usecase.AccountStore = (*Store)(nil)
