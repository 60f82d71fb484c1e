package message

// Numeric reply codes: the RFC numerics this server sends, plus the
// custom server-action notices that carry an RPL_/ERR_ label instead of a
// real numeric.
const (
	ReplyWelcome      = "001"
	ReplyYourHost     = "002"
	ReplyCreated      = "003"
	ReplyMyInfo       = "004"
	ReplyAway         = "301"
	ReplyUnAway       = "305"
	ReplyNoAway       = "306" // sent when an away message is set
	ReplyWhoisUser    = "311"
	ReplyWhoisServer  = "312"
	ReplyWhoisOperOn  = "313"
	ReplyWhoReply     = "352"
	ReplyEndOfWho     = "315"
	ReplyWhoisIdle    = "317"
	ReplyEndOfWhois   = "318"
	ReplyWhoisChannel = "319"
	ReplyListStart    = "321"
	ReplyList         = "322"
	ReplyEndOfList    = "323"
	ReplyChannelModeIs = "324"
	ReplyNoTopic      = "331"
	ReplyTopic        = "332"
	ReplyInviting     = "341"
	ReplyNamReply     = "353"
	ReplyEndOfNames   = "366"
	ReplyMotd         = "372"
	ReplyMotdStart    = "375"
	ReplyEndOfMotd    = "376"
	ReplyYoureOper    = "381"

	ErrNoSuchNick       = "401"
	ErrNoSuchServer     = "402"
	ErrNoSuchChannel    = "403"
	ErrCannotSendToChan = "404"
	ErrNoOrigin         = "409"
	ErrNoRecipient      = "411"
	ErrNoTextToSend     = "412"
	ErrUnknownCommand   = "421"
	ErrNoNicknameGiven  = "431"
	ErrErroneusNickname = "432"
	ErrNicknameInUse    = "433"
	ErrUserNotInChannel = "441"
	ErrNotOnChannel     = "442"
	ErrUserOnChannel    = "443"
	ErrNotRegistered    = "451"
	ErrNeedMoreParams   = "461"
	ErrAlreadyRegistred = "462"
	ErrPasswdMismatch   = "464"
	ErrKeySet           = "467"
	ErrChannelIsFull    = "471"
	ErrUnknownMode      = "472"
	ErrInviteOnlyChan   = "473"
	ErrBadChannelKey    = "475"
	ErrNoPrivileges     = "481"
	ErrChanOPrivsNeeded = "482"
	ErrUsersDontMatch   = "502"

	// Server-action codes. These are not RFC numerics. The registrar's
	// codes (registration steps) are sent as NOTICE text; the executor puts
	// RPL_NICKCHANGE, RPL_NICKOUT and ERR_SAMEUSER in the command position
	// of a server-prefixed line, where a numeric would go.
	ReplyRegistered  = "RPL_REGISTERED"
	ReplySucLogin    = "RPL_SUCLOGIN"
	ReplyNickSet     = "RPL_NICKSET"
	ReplyNickChange  = "RPL_NICKCHANGE"
	ReplyNickOut     = "RPL_NICKOUT"
	ErrRegMissing    = "ERR_REGMISSING"
	ErrSameUser      = "ERR_SAMEUSER"
)
